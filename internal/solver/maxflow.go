package solver

import (
	"math"

	"github.com/SmartX-Team/OpenARK-sub002/internal/graph"
)

// MaxFlow computes the maximum flow from the first to the last node of
// the sorted node index, honoring the capacity column. Self edges and
// zero-capacity edges carry no flow.
func MaxFlow(data graph.Data, meta graph.Pinned) (*Result, error) {
	net, err := indexGraph(data, meta)
	if err != nil {
		return nil, err
	}
	if net.edges() == 0 || net.nodes() < 2 {
		edges, err := withFlows(data.Edges, meta, make([]int64, net.edges()))
		if err != nil {
			return nil, err
		}
		return &Result{Status: StatusOptimal, Edges: edges}, nil
	}
	capacities, err := edgeInts(data.Edges, meta.CapacityCol)
	if err != nil {
		return nil, err
	}

	// Residual graph: arc 2e is edge e, arc 2e+1 its reverse.
	type arc struct {
		head int
		cap  int64
	}
	arcs := make([]arc, 0, 2*net.edges())
	adj := make([][]int, net.nodes())
	for e := 0; e < net.edges(); e++ {
		u, v := net.edgeSrc[e], net.edgeDst[e]
		arcs = append(arcs, arc{head: v, cap: capacities[e]}, arc{head: u})
		if u != v {
			adj[u] = append(adj[u], 2*e)
			adj[v] = append(adj[v], 2*e+1)
		}
	}

	source, sink := 0, net.nodes()-1
	var total int64
	parent := make([]int, net.nodes())
	for {
		for i := range parent {
			parent[i] = -1
		}
		parent[source] = -2
		queue := []int{source}
		for len(queue) > 0 && parent[sink] == -1 {
			u := queue[0]
			queue = queue[1:]
			for _, a := range adj[u] {
				if arcs[a].cap <= 0 || parent[arcs[a].head] != -1 {
					continue
				}
				parent[arcs[a].head] = a
				queue = append(queue, arcs[a].head)
			}
		}
		if parent[sink] == -1 {
			break
		}
		bottleneck := int64(math.MaxInt64)
		for v := sink; v != source; {
			a := parent[v]
			if arcs[a].cap < bottleneck {
				bottleneck = arcs[a].cap
			}
			v = arcs[a^1].head
		}
		for v := sink; v != source; {
			a := parent[v]
			arcs[a].cap -= bottleneck
			arcs[a^1].cap += bottleneck
			v = arcs[a^1].head
		}
		total += bottleneck
	}

	flows := make([]int64, net.edges())
	for e := 0; e < net.edges(); e++ {
		flows[e] = arcs[2*e+1].cap
	}
	edges, err := withFlows(data.Edges, meta, flows)
	if err != nil {
		return nil, err
	}
	return &Result{Status: StatusOptimal, Edges: edges, TotalFlow: total}, nil
}
