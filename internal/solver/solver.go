// Package solver assigns flow to a graph's edges. Two problems are
// supported: maximum flow between the extremes of the node index, and
// minimum-cost flow routing node supplies. Results are data, not
// errors: an infeasible problem comes back with a status, while a
// malformed graph comes back with an error.
package solver

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/SmartX-Team/OpenARK-sub002/internal/frame"
	"github.com/SmartX-Team/OpenARK-sub002/internal/graph"
)

// Status reports how a solve ended.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	default:
		return "unknown"
	}
}

// Result is a finished solve. Edges is the input edge frame with the
// metadata's flow column attached; it is only meaningful when Status
// is StatusOptimal.
type Result struct {
	Status    Status
	Edges     *frame.Table
	TotalFlow int64
	TotalCost int64
}

// network is the indexed view of a graph's frames: node names mapped
// onto a dense sorted index, edges as endpoint index pairs.
type network struct {
	names []string
	index map[string]int

	edgeSrc []int
	edgeDst []int
}

func (n *network) nodes() int { return len(n.names) }
func (n *network) edges() int { return len(n.edgeSrc) }

// indexGraph builds the dense node index from the union of node names
// and edge endpoints, sorted. Node 0 is the source side and the last
// node the sink side for max-flow.
func indexGraph(data graph.Data, meta graph.Pinned) (*network, error) {
	seen := make(map[string]struct{})
	collect := func(t *frame.Table, col string) ([]string, error) {
		values, err := t.Column(col)
		if err != nil {
			return nil, err
		}
		names, err := frame.Strings(values)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			seen[name] = struct{}{}
		}
		return names, nil
	}

	net := &network{index: make(map[string]int)}
	var srcNames, dstNames []string
	if data.Edges != nil && data.Edges.Len() > 0 {
		var err error
		if srcNames, err = collect(data.Edges, meta.SrcCol); err != nil {
			return nil, err
		}
		if dstNames, err = collect(data.Edges, meta.SinkCol); err != nil {
			return nil, err
		}
	}
	if data.Nodes != nil && data.Nodes.Len() > 0 {
		if _, err := collect(data.Nodes, meta.NameCol); err != nil {
			return nil, err
		}
	}
	for name := range seen {
		net.names = append(net.names, name)
	}
	sort.Strings(net.names)
	for i, name := range net.names {
		net.index[name] = i
	}
	for i := range srcNames {
		net.edgeSrc = append(net.edgeSrc, net.index[srcNames[i]])
		net.edgeDst = append(net.edgeDst, net.index[dstNames[i]])
	}
	return net, nil
}

// edgeInts reads an integer edge column, rejecting negatives.
func edgeInts(edges *frame.Table, col string) ([]int64, error) {
	values, err := edges.Column(col)
	if err != nil {
		return nil, err
	}
	ints, err := frame.Ints(values)
	if err != nil {
		return nil, err
	}
	for i, v := range ints {
		if v < 0 {
			return nil, fmt.Errorf("solver: negative %s %d on edge %d", col, v, i)
		}
	}
	return ints, nil
}

// withFlows attaches per-edge flows under the metadata's flow column.
func withFlows(edges *frame.Table, meta graph.Pinned, flows []int64) (*frame.Table, error) {
	values := make([]cty.Value, len(flows))
	for i, f := range flows {
		values[i] = cty.NumberIntVal(f)
	}
	if edges == nil {
		edges = frame.Empty(meta.SrcCol, meta.SinkCol)
	}
	return edges.WithColumn(meta.FlowCol, values)
}
