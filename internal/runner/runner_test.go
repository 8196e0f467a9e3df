package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/SmartX-Team/OpenARK-sub002/internal/frame"
	"github.com/SmartX-Team/OpenARK-sub002/internal/function"
	"github.com/SmartX-Team/OpenARK-sub002/internal/graph"
	"github.com/SmartX-Team/OpenARK-sub002/internal/registry"
	"github.com/SmartX-Team/OpenARK-sub002/internal/store"
)

func solvedWarehouse(stage string) graph.Graph {
	meta := graph.DefaultPinned()
	return graph.Graph{
		Scope:    graph.GlobalScope("default"),
		Metadata: meta,
		Data: graph.Data{
			Nodes: frame.MustNew(
				frame.Series{Name: "name", Values: []cty.Value{cty.StringVal("a"), cty.StringVal("b")}},
				frame.Series{Name: "supply", Values: []cty.Value{cty.NumberIntVal(300), cty.NumberIntVal(0)}},
				frame.Series{Name: "connector", Values: []cty.Value{cty.StringVal("warehouse"), cty.StringVal("warehouse")}},
			),
			Edges: frame.MustNew(
				frame.Series{Name: "src", Values: []cty.Value{cty.StringVal("a")}},
				frame.Series{Name: "sink", Values: []cty.Value{cty.StringVal("b")}},
				frame.Series{Name: "flow", Values: []cty.Value{cty.NumberIntVal(50)}},
				frame.Series{Name: "function", Values: []cty.Value{cty.StringVal(stage)}},
			),
		},
	}
}

func supplies(t *testing.T, g graph.Graph) []int64 {
	t.Helper()
	values, err := g.Data.Nodes.Column("supply")
	require.NoError(t, err)
	out, err := frame.Ints(values)
	require.NoError(t, err)
	return out
}

func TestExecute_StaticEdgeMovesSupply(t *testing.T) {
	t.Parallel()

	db := store.NewMemory()
	run := New(db)

	got, err := run.Execute(context.Background(), registry.New(), solvedWarehouse(graph.FunctionStatic))
	require.NoError(t, err)
	require.Equal(t, []int64{250, 50}, supplies(t, got))

	// The connector's slice of the outcome is persisted under its own
	// scope, edges included.
	snap, err := db.Get(context.Background(), graph.Scope{Namespace: "default", Name: "warehouse"})
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.Equal(t, []int64{250, 50}, supplies(t, *snap))
	require.Equal(t, 1, snap.Data.Edges.Len())
	require.NotNil(t, snap.Connector)
}

func TestExecute_ScriptFunctionStageApplies(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	stage, err := function.Compile(function.Template{Script: "capacity = 50"})
	require.NoError(t, err)
	reg.InsertFunction(&registry.FunctionSpec{
		Scope: graph.Scope{Namespace: "default", Name: "move"},
		Kind:  function.KindScript,
		Stage: stage,
	})

	run := New(store.NewMemory())
	got, err := run.Execute(context.Background(), reg, solvedWarehouse("move"))
	require.NoError(t, err)
	require.Equal(t, []int64{250, 50}, supplies(t, got))
}

func TestExecute_SkipsAnnotationsAndUnknownStages(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.InsertFunction(&registry.FunctionSpec{
		Scope: graph.Scope{Namespace: "default", Name: "note"},
		Kind:  function.KindAnnotation,
	})

	run := New(store.NewMemory())

	// An annotation function never executes.
	got, err := run.Execute(context.Background(), reg, solvedWarehouse("note"))
	require.NoError(t, err)
	require.Equal(t, []int64{300, 0}, supplies(t, got))

	// Neither does a label no declared function backs.
	got, err = run.Execute(context.Background(), reg, solvedWarehouse("ghost"))
	require.NoError(t, err)
	require.Equal(t, []int64{300, 0}, supplies(t, got))
}

func TestExecute_NonPositiveFlowIsIgnored(t *testing.T) {
	t.Parallel()

	g := solvedWarehouse(graph.FunctionStatic)
	flows := []cty.Value{cty.NumberIntVal(0)}
	edges, err := g.Data.Edges.WithColumn("flow", flows)
	require.NoError(t, err)
	g.Data.Edges = edges

	run := New(store.NewMemory())
	got, err := run.Execute(context.Background(), registry.New(), g)
	require.NoError(t, err)
	require.Equal(t, []int64{300, 0}, supplies(t, got))
}

func TestExecute_DisaggregatesPerConnector(t *testing.T) {
	t.Parallel()

	meta := graph.DefaultPinned()
	g := graph.Graph{
		Scope:    graph.GlobalScope("default"),
		Metadata: meta,
		Data: graph.Data{
			Nodes: frame.MustNew(
				frame.Series{Name: "name", Values: []cty.Value{cty.StringVal("a"), cty.StringVal("b")}},
				frame.Series{Name: "supply", Values: []cty.Value{cty.NumberIntVal(10), cty.NumberIntVal(-10)}},
				frame.Series{Name: "connector", Values: []cty.Value{cty.StringVal("east"), cty.StringVal("west")}},
			),
			Edges: frame.MustNew(
				frame.Series{Name: "src", Values: []cty.Value{cty.StringVal("a")}},
				frame.Series{Name: "sink", Values: []cty.Value{cty.StringVal("b")}},
				frame.Series{Name: "flow", Values: []cty.Value{cty.NumberIntVal(10)}},
				frame.Series{Name: "function", Values: []cty.Value{cty.StringVal(graph.FunctionStatic)}},
			),
		},
	}

	db := store.NewMemory()
	_, err := New(db).Execute(context.Background(), registry.New(), g)
	require.NoError(t, err)

	east, err := db.Get(context.Background(), graph.Scope{Namespace: "default", Name: "east"})
	require.NoError(t, err)
	require.NotNil(t, east)
	require.Equal(t, 1, east.Data.Nodes.Len())
	// The edge crosses connectors, so neither slice keeps it.
	require.Equal(t, 0, east.Data.Edges.Len())

	west, err := db.Get(context.Background(), graph.Scope{Namespace: "default", Name: "west"})
	require.NoError(t, err)
	require.NotNil(t, west)
	require.Equal(t, []int64{0}, supplies(t, *west))
}
