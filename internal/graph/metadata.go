package graph

// Metadata dialects map the logical roles the engine cares about
// (where is a node's name, an edge's capacity, ...) onto the concrete
// column names a frame uses. Raw carries whatever was declared,
// Standard fills gaps with defaults, Pinned is total and is the only
// dialect the engine operates on.

// Logical role names, also the default column names.
const (
	RoleCapacity  = "capacity"
	RoleConnector = "connector"
	RoleFlow      = "flow"
	RoleFunction  = "function"
	RoleName      = "name"
	RoleSink      = "sink"
	RoleSrc       = "src"
	RoleSupply    = "supply"
	RoleUnitCost  = "unit_cost"
)

// FunctionStatic labels edges that came with a graph rather than out
// of a stage.
const FunctionStatic = "static"

// Metadata is any dialect that can be pinned.
type Metadata interface {
	ToPinned() Pinned
}

// Pinned maps every role to a column name. All fields are set.
type Pinned struct {
	CapacityCol  string            `json:"capacity"`
	ConnectorCol string            `json:"connector"`
	FlowCol      string            `json:"flow"`
	FunctionCol  string            `json:"function"`
	NameCol      string            `json:"name"`
	SinkCol      string            `json:"sink"`
	SrcCol       string            `json:"src"`
	SupplyCol    string            `json:"supply"`
	UnitCostCol  string            `json:"unit_cost"`
	ExtraCols    map[string]string `json:"extras,omitempty"`
}

// DefaultPinned maps every role to its own name.
func DefaultPinned() Pinned {
	return Pinned{
		CapacityCol:  RoleCapacity,
		ConnectorCol: RoleConnector,
		FlowCol:      RoleFlow,
		FunctionCol:  RoleFunction,
		NameCol:      RoleName,
		SinkCol:      RoleSink,
		SrcCol:       RoleSrc,
		SupplyCol:    RoleSupply,
		UnitCostCol:  RoleUnitCost,
	}
}

func (p Pinned) ToPinned() Pinned { return p }

// Standard names some role columns explicitly; empty fields pin to
// the defaults.
type Standard struct {
	CapacityCol  string
	ConnectorCol string
	FlowCol      string
	FunctionCol  string
	NameCol      string
	SinkCol      string
	SrcCol       string
	SupplyCol    string
	UnitCostCol  string
}

func (s Standard) ToPinned() Pinned {
	p := DefaultPinned()
	override(&p.CapacityCol, s.CapacityCol)
	override(&p.ConnectorCol, s.ConnectorCol)
	override(&p.FlowCol, s.FlowCol)
	override(&p.FunctionCol, s.FunctionCol)
	override(&p.NameCol, s.NameCol)
	override(&p.SinkCol, s.SinkCol)
	override(&p.SrcCol, s.SrcCol)
	override(&p.SupplyCol, s.SupplyCol)
	override(&p.UnitCostCol, s.UnitCostCol)
	return p
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Raw is a free-form role-to-column mapping as declared by a problem.
// Known roles override the defaults; anything else rides along as an
// extra column mapping.
type Raw map[string]string

func (r Raw) ToPinned() Pinned {
	p := DefaultPinned()
	for role, col := range r {
		switch role {
		case RoleCapacity:
			p.CapacityCol = col
		case RoleConnector:
			p.ConnectorCol = col
		case RoleFlow:
			p.FlowCol = col
		case RoleFunction:
			p.FunctionCol = col
		case RoleName:
			p.NameCol = col
		case RoleSink:
			p.SinkCol = col
		case RoleSrc:
			p.SrcCol = col
		case RoleSupply:
			p.SupplyCol = col
		case RoleUnitCost:
			p.UnitCostCol = col
		default:
			if p.ExtraCols == nil {
				p.ExtraCols = make(map[string]string)
			}
			p.ExtraCols[role] = col
		}
	}
	return p
}
