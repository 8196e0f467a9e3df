package graph

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/SmartX-Team/OpenARK-sub002/internal/frame"
)

// DataType tells a cast whether it is looking at node or edge columns.
type DataType int

const (
	DataTypeNode DataType = iota
	DataTypeEdge
)

// Data is a graph snapshot: a node frame and an edge frame.
type Data struct {
	Nodes *frame.Table `json:"nodes"`
	Edges *frame.Table `json:"edges"`
}

// Graph is a scoped snapshot with the metadata its frames follow.
// Connector, when set, names the connector the snapshot came from.
type Graph struct {
	Scope     Scope  `json:"scope"`
	Connector *Scope `json:"connector,omitempty"`
	Metadata  Pinned `json:"metadata"`
	Data      Data   `json:"data"`
}

type roleColumn struct {
	column   func(Pinned) string
	required bool
}

// Role columns a cast touches, and which of them a frame of that type
// cannot live without.
var (
	nodeRoles = []roleColumn{
		{func(p Pinned) string { return p.NameCol }, true},
		{func(p Pinned) string { return p.CapacityCol }, false},
		{func(p Pinned) string { return p.SupplyCol }, false},
		{func(p Pinned) string { return p.UnitCostCol }, false},
		{func(p Pinned) string { return p.ConnectorCol }, false},
	}
	edgeRoles = []roleColumn{
		{func(p Pinned) string { return p.SrcCol }, true},
		{func(p Pinned) string { return p.SinkCol }, true},
		{func(p Pinned) string { return p.CapacityCol }, false},
		{func(p Pinned) string { return p.FlowCol }, false},
		{func(p Pinned) string { return p.FunctionCol }, false},
		{func(p Pinned) string { return p.UnitCostCol }, false},
	}
)

// Cast renames a frame's role columns from one dialect to another. It
// renames only; values are untouched. A missing required column (node
// name, edge endpoints) surfaces as a frame.SchemaError. Nil and
// zero-row frames cast to themselves.
func Cast(t *frame.Table, from, to Pinned, typ DataType) (*frame.Table, error) {
	if t == nil {
		return nil, nil
	}
	roles := nodeRoles
	if typ == DataTypeEdge {
		roles = edgeRoles
	}
	mapping := make(map[string]string)
	for _, role := range roles {
		src, dst := role.column(from), role.column(to)
		if !t.Has(src) {
			if role.required && t.Len() > 0 {
				return nil, &frame.SchemaError{Column: src}
			}
			continue
		}
		if src != dst {
			mapping[src] = dst
		}
	}
	for extra, src := range from.ExtraCols {
		if dst, ok := to.ExtraCols[extra]; ok && t.Has(src) && src != dst {
			mapping[src] = dst
		}
	}
	if len(mapping) == 0 {
		return t, nil
	}
	return t.Rename(mapping)
}

// CastData casts both frames of a snapshot.
func CastData(d Data, from, to Pinned) (Data, error) {
	nodes, err := Cast(d.Nodes, from, to, DataTypeNode)
	if err != nil {
		return Data{}, err
	}
	edges, err := Cast(d.Edges, from, to, DataTypeEdge)
	if err != nil {
		return Data{}, err
	}
	return Data{Nodes: nodes, Edges: edges}, nil
}

// TagStaticEdges makes sure an edge frame carries a function column,
// labeling unattributed edges as static.
func TagStaticEdges(edges *frame.Table, meta Pinned) *frame.Table {
	if edges == nil || edges.Has(meta.FunctionCol) {
		return edges
	}
	return edges.WithConstant(meta.FunctionCol, cty.StringVal(FunctionStatic))
}
