package solver

import (
	"math"

	"github.com/SmartX-Team/OpenARK-sub002/internal/frame"
	"github.com/SmartX-Team/OpenARK-sub002/internal/graph"
)

const distInf = math.MaxInt64 / 4

// mcArc is one directed arc of the residual network. Arc 2e is edge e
// with its remaining capacity, arc 2e+1 the reverse with the pushed
// flow; supply arcs follow the same pairing after the edge arcs.
type mcArc struct {
	tail, head int
	cost       int64
	cap        int64
}

// MinCostFlow routes node supplies (positive: produces, negative:
// consumes) at minimal total cost. Supplies must balance to zero and
// be fully routable, otherwise the result is StatusInfeasible.
//
// The search is successive shortest paths with Bellman-Ford over the
// residual network. Relaxation is deterministic: arcs relax in index
// order, a strictly shorter path always wins, and an equally short
// path takes over only through a forward arc with a larger index than
// the incumbent parent arc, so reruns always pick the same optimum
// among equal-cost alternatives. Capacities are finite, so
// StatusUnbounded cannot occur here; a search that fails to settle
// degrades to StatusUnknown.
func MinCostFlow(data graph.Data, meta graph.Pinned) (*Result, error) {
	net, err := indexGraph(data, meta)
	if err != nil {
		return nil, err
	}
	zeroResult := func(status Status) (*Result, error) {
		edges, err := withFlows(data.Edges, meta, make([]int64, net.edges()))
		if err != nil {
			return nil, err
		}
		return &Result{Status: status, Edges: edges}, nil
	}
	if net.nodes() == 0 {
		return zeroResult(StatusOptimal)
	}

	supplies, err := nodeSupplies(data.Nodes, meta, net)
	if err != nil {
		return nil, err
	}
	var supplySum, totalSupply int64
	for _, s := range supplies {
		supplySum += s
		if s > 0 {
			totalSupply += s
		}
	}
	if supplySum != 0 {
		return zeroResult(StatusInfeasible)
	}
	if totalSupply == 0 {
		return zeroResult(StatusOptimal)
	}

	capacities, err := edgeInts(data.Edges, meta.CapacityCol)
	if err != nil {
		return nil, err
	}
	costValues, err := data.Edges.Column(meta.UnitCostCol)
	if err != nil {
		return nil, err
	}
	costs, err := frame.Ints(costValues)
	if err != nil {
		return nil, err
	}

	// Super source and sink route the supplies.
	source := net.nodes()
	sink := net.nodes() + 1
	arcs := make([]mcArc, 0, 2*net.edges()+2*net.nodes())
	addArc := func(u, v int, cost, capacity int64) {
		arcs = append(arcs,
			mcArc{tail: u, head: v, cost: cost, cap: capacity},
			mcArc{tail: v, head: u, cost: -cost},
		)
	}
	for e := 0; e < net.edges(); e++ {
		addArc(net.edgeSrc[e], net.edgeDst[e], costs[e], capacities[e])
	}
	for i, s := range supplies {
		if s > 0 {
			addArc(source, i, 0, s)
		} else if s < 0 {
			addArc(i, sink, 0, -s)
		}
	}

	nodes := net.nodes() + 2
	dist := make([]int64, nodes)
	parent := make([]int, nodes)
	passLimit := 2*nodes + len(arcs)

	remaining := totalSupply
	for remaining > 0 {
		for i := range dist {
			dist[i] = distInf
			parent[i] = -1
		}
		dist[source] = 0
		settled := false
		for pass := 0; pass < passLimit; pass++ {
			changed := false
			for i, a := range arcs {
				if a.cap <= 0 || a.tail == a.head {
					continue
				}
				du := dist[a.tail]
				if du >= distInf {
					continue
				}
				// Never walk straight back along the arc that
				// reached the tail.
				if parent[a.tail] == i^1 {
					continue
				}
				nd := du + a.cost
				switch {
				case nd < dist[a.head]:
					dist[a.head] = nd
					parent[a.head] = i
					changed = true
				case nd == dist[a.head] && i%2 == 0 && parent[a.head] >= 0 && i > parent[a.head]:
					parent[a.head] = i
					changed = true
				}
			}
			if !changed {
				settled = true
				break
			}
		}
		if !settled {
			return zeroResult(StatusUnknown)
		}
		if dist[sink] >= distInf {
			return zeroResult(StatusInfeasible)
		}

		bottleneck := remaining
		visited := make(map[int]bool)
		for v := sink; v != source; {
			if visited[v] {
				return zeroResult(StatusUnknown)
			}
			visited[v] = true
			a := parent[v]
			if arcs[a].cap < bottleneck {
				bottleneck = arcs[a].cap
			}
			v = arcs[a].tail
		}
		for v := sink; v != source; {
			a := parent[v]
			arcs[a].cap -= bottleneck
			arcs[a^1].cap += bottleneck
			v = arcs[a].tail
		}
		remaining -= bottleneck
	}

	flows := make([]int64, net.edges())
	var totalCost int64
	for e := 0; e < net.edges(); e++ {
		flows[e] = arcs[2*e+1].cap
		totalCost += flows[e] * costs[e]
	}
	edges, err := withFlows(data.Edges, meta, flows)
	if err != nil {
		return nil, err
	}
	return &Result{Status: StatusOptimal, Edges: edges, TotalCost: totalCost}, nil
}

// nodeSupplies reads per-node supplies into the dense index. Nodes
// that only appear as edge endpoints have zero supply.
func nodeSupplies(nodes *frame.Table, meta graph.Pinned, net *network) ([]int64, error) {
	supplies := make([]int64, net.nodes())
	if nodes == nil || nodes.Len() == 0 {
		return supplies, nil
	}
	nameValues, err := nodes.Column(meta.NameCol)
	if err != nil {
		return nil, err
	}
	names, err := frame.Strings(nameValues)
	if err != nil {
		return nil, err
	}
	supplyValues, err := nodes.Column(meta.SupplyCol)
	if err != nil {
		return nil, err
	}
	values, err := frame.Ints(supplyValues)
	if err != nil {
		return nil, err
	}
	for i, name := range names {
		supplies[net.index[name]] += values[i]
	}
	return supplies, nil
}
