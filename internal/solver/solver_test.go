package solver

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/SmartX-Team/OpenARK-sub002/internal/frame"
	"github.com/SmartX-Team/OpenARK-sub002/internal/graph"
)

func nodeNames(names ...string) []cty.Value {
	out := make([]cty.Value, len(names))
	for i, n := range names {
		out[i] = cty.StringVal(n)
	}
	return out
}

func intVals(values ...int64) []cty.Value {
	out := make([]cty.Value, len(values))
	for i, v := range values {
		out[i] = cty.NumberIntVal(v)
	}
	return out
}

func flowColumn(t *testing.T, result *Result, meta graph.Pinned) []int64 {
	t.Helper()
	values, err := result.Edges.Column(meta.FlowCol)
	require.NoError(t, err)
	flows, err := frame.Ints(values)
	require.NoError(t, err)
	return flows
}

func TestMaxFlow(t *testing.T) {
	t.Parallel()

	meta := graph.DefaultPinned()
	data := graph.Data{
		Edges: frame.MustNew(
			frame.Series{Name: "src", Values: nodeNames("0", "0", "0", "1", "1", "2", "2", "3", "3")},
			frame.Series{Name: "sink", Values: nodeNames("1", "2", "3", "2", "4", "3", "4", "2", "4")},
			frame.Series{Name: "capacity", Values: intVals(20, 30, 10, 40, 30, 10, 20, 5, 20)},
		),
	}

	result, err := MaxFlow(data, meta)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, result.Status)
	require.Equal(t, int64(60), result.TotalFlow)

	// Flow conservation at every inner node.
	flows := flowColumn(t, result, meta)
	balance := map[string]int64{}
	srcs := []string{"0", "0", "0", "1", "1", "2", "2", "3", "3"}
	sinks := []string{"1", "2", "3", "2", "4", "3", "4", "2", "4"}
	for i, f := range flows {
		balance[srcs[i]] -= f
		balance[sinks[i]] += f
	}
	require.Equal(t, int64(-60), balance["0"])
	require.Equal(t, int64(60), balance["4"])
	for _, inner := range []string{"1", "2", "3"} {
		require.Zero(t, balance[inner])
	}
}

func TestMaxFlow_SelfLoopCarriesNothing(t *testing.T) {
	t.Parallel()

	meta := graph.DefaultPinned()
	data := graph.Data{
		Edges: frame.MustNew(
			frame.Series{Name: "src", Values: nodeNames("a", "a")},
			frame.Series{Name: "sink", Values: nodeNames("a", "b")},
			frame.Series{Name: "capacity", Values: intVals(10, 5)},
		),
	}

	result, err := MaxFlow(data, meta)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, result.Status)
	require.Equal(t, []int64{0, 5}, flowColumn(t, result, meta))
}

func minCostFixture() graph.Data {
	return graph.Data{
		Nodes: frame.MustNew(
			frame.Series{Name: "name", Values: nodeNames("0", "1", "2", "3", "4")},
			frame.Series{Name: "supply", Values: intVals(20, 0, 0, -5, -15)},
		),
		Edges: frame.MustNew(
			frame.Series{Name: "src", Values: nodeNames("0", "0", "1", "1", "1", "2", "2", "3", "4")},
			frame.Series{Name: "sink", Values: nodeNames("1", "2", "2", "3", "4", "3", "4", "4", "2")},
			frame.Series{Name: "capacity", Values: intVals(15, 8, 20, 4, 10, 15, 4, 20, 5)},
			frame.Series{Name: "unit_cost", Values: intVals(4, 4, 2, 2, 6, 1, 3, 2, 3)},
		),
	}
}

func TestMinCostFlow(t *testing.T) {
	t.Parallel()

	meta := graph.DefaultPinned()
	result, err := MinCostFlow(minCostFixture(), meta)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, result.Status)
	require.Equal(t, int64(150), result.TotalCost)
	require.Equal(t, []int64{12, 8, 8, 4, 0, 15, 1, 14, 0}, flowColumn(t, result, meta))
}

func TestMinCostFlow_PerEdgeCosts(t *testing.T) {
	t.Parallel()

	meta := graph.DefaultPinned()
	result, err := MinCostFlow(minCostFixture(), meta)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, result.Status)

	flows := flowColumn(t, result, meta)
	costs := []int64{4, 4, 2, 2, 6, 1, 3, 2, 3}

	// Edge index by endpoint pair in fixture order.
	edgeCost := func(i int) int64 { return flows[i] * costs[i] }
	require.Equal(t, int64(0), edgeCost(4))  // 1 -> 4
	require.Equal(t, int64(15), edgeCost(5)) // 2 -> 3
	require.Equal(t, int64(28), edgeCost(7)) // 3 -> 4
	require.Equal(t, int64(0), edgeCost(8))  // 4 -> 2
}

func TestMinCostFlow_UnbalancedSuppliesAreInfeasible(t *testing.T) {
	t.Parallel()

	meta := graph.DefaultPinned()
	data := graph.Data{
		Nodes: frame.MustNew(
			frame.Series{Name: "name", Values: nodeNames("a", "b")},
			frame.Series{Name: "supply", Values: intVals(10, -5)},
		),
		Edges: frame.MustNew(
			frame.Series{Name: "src", Values: nodeNames("a")},
			frame.Series{Name: "sink", Values: nodeNames("b")},
			frame.Series{Name: "capacity", Values: intVals(10)},
			frame.Series{Name: "unit_cost", Values: intVals(1)},
		),
	}

	result, err := MinCostFlow(data, meta)
	require.NoError(t, err)
	require.Equal(t, StatusInfeasible, result.Status)
}

func TestMinCostFlow_UnreachableDemandIsInfeasible(t *testing.T) {
	t.Parallel()

	meta := graph.DefaultPinned()
	data := graph.Data{
		Nodes: frame.MustNew(
			frame.Series{Name: "name", Values: nodeNames("a", "b", "c")},
			frame.Series{Name: "supply", Values: intVals(10, -10, 0)},
		),
		Edges: frame.MustNew(
			// Capacity is too small to route the whole supply.
			frame.Series{Name: "src", Values: nodeNames("a")},
			frame.Series{Name: "sink", Values: nodeNames("b")},
			frame.Series{Name: "capacity", Values: intVals(4)},
			frame.Series{Name: "unit_cost", Values: intVals(1)},
		),
	}

	result, err := MinCostFlow(data, meta)
	require.NoError(t, err)
	require.Equal(t, StatusInfeasible, result.Status)
}

func TestMinCostFlow_ZeroSuppliesSolveToZero(t *testing.T) {
	t.Parallel()

	meta := graph.DefaultPinned()
	data := graph.Data{
		Nodes: frame.MustNew(
			frame.Series{Name: "name", Values: nodeNames("a", "b")},
			frame.Series{Name: "supply", Values: intVals(0, 0)},
		),
		Edges: frame.MustNew(
			frame.Series{Name: "src", Values: nodeNames("a")},
			frame.Series{Name: "sink", Values: nodeNames("b")},
			frame.Series{Name: "capacity", Values: intVals(10)},
			frame.Series{Name: "unit_cost", Values: intVals(1)},
		),
	}

	result, err := MinCostFlow(data, meta)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, result.Status)
	require.Equal(t, int64(0), result.TotalCost)
	require.Equal(t, []int64{0}, flowColumn(t, result, meta))
}

func TestSolver_RejectsNegativeCapacity(t *testing.T) {
	t.Parallel()

	meta := graph.DefaultPinned()
	data := graph.Data{
		Edges: frame.MustNew(
			frame.Series{Name: "src", Values: nodeNames("a")},
			frame.Series{Name: "sink", Values: nodeNames("b")},
			frame.Series{Name: "capacity", Values: intVals(-1)},
		),
	}

	_, err := MaxFlow(data, meta)
	require.Error(t, err)
}
