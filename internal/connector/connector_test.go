package connector

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/SmartX-Team/OpenARK-sub002/internal/frame"
	"github.com/SmartX-Team/OpenARK-sub002/internal/graph"
	"github.com/SmartX-Team/OpenARK-sub002/internal/registry"
	"github.com/SmartX-Team/OpenARK-sub002/internal/store"
)

// stubConnector records the declarations each pull saw.
type stubConnector struct {
	kind string

	mu    sync.Mutex
	pulls [][]*registry.ConnectorSpec
}

func (s *stubConnector) Kind() string            { return s.kind }
func (s *stubConnector) Interval() time.Duration { return 5 * time.Millisecond }

func (s *stubConnector) Pull(ctx context.Context, specs []*registry.ConnectorSpec, sink Sink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pulls = append(s.pulls, specs)
	return nil
}

func (s *stubConnector) recorded() [][]*registry.ConnectorSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]*registry.ConnectorSpec(nil), s.pulls...)
}

func TestPool_PullsWithCachedSpecs(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.InsertConnector(&registry.ConnectorSpec{
		Scope: graph.Scope{Namespace: "default", Name: "warehouse"},
		Kind:  "stub",
	})

	stub := &stubConnector{kind: "stub"}
	pool := NewPool(reg, store.NewMemory(), nil, stub)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	require.NoError(t, pool.Run(ctx))

	pulls := stub.recorded()
	require.NotEmpty(t, pulls)
	// The first poll fetched the declarations; later polls reused the
	// cached set even though the registry had nothing new to say.
	require.Greater(t, len(pulls), 1)
	for _, specs := range pulls {
		require.Len(t, specs, 1)
		require.Equal(t, "warehouse", specs[0].Scope.Name)
	}
}

func TestPool_DeclaredIntervalOverridesKind(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.InsertConnector(&registry.ConnectorSpec{
		Scope: graph.Scope{Namespace: "default", Name: "fast"},
		Kind:  "stub",
	})
	reg.InsertConnector(&registry.ConnectorSpec{
		Scope:    graph.Scope{Namespace: "default", Name: "slow"},
		Kind:     "stub",
		Interval: 60 * time.Millisecond,
	})

	stub := &stubConnector{kind: "stub"}
	pool := NewPool(reg, store.NewMemory(), nil, stub)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Millisecond)
	defer cancel()
	require.NoError(t, pool.Run(ctx))

	var fast, slow int
	for _, batch := range stub.recorded() {
		for _, spec := range batch {
			switch spec.Scope.Name {
			case "fast":
				fast++
			case "slow":
				slow++
			}
		}
	}
	// The fast declaration rides the kind's 5ms cadence while the slow
	// one only comes due on its declared 60ms.
	require.GreaterOrEqual(t, fast, 3)
	require.GreaterOrEqual(t, slow, 1)
	require.Greater(t, fast, slow)
}

func TestPool_NoDeclarationsNoPulls(t *testing.T) {
	t.Parallel()

	stub := &stubConnector{kind: "stub"}
	pool := NewPool(registry.New(), store.NewMemory(), nil, stub)

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()
	require.NoError(t, pool.Run(ctx))

	require.Empty(t, stub.recorded())
}

func TestSnapshot_StampsConnectorAndStaticEdges(t *testing.T) {
	t.Parallel()

	scope := graph.Scope{Namespace: "default", Name: "warehouse"}
	data := graph.Data{
		Nodes: frame.MustNew(
			frame.Series{Name: "name", Values: []cty.Value{cty.StringVal("a")}},
		),
		Edges: frame.MustNew(
			frame.Series{Name: "src", Values: []cty.Value{cty.StringVal("a")}},
			frame.Series{Name: "sink", Values: []cty.Value{cty.StringVal("a")}},
		),
	}

	g := Snapshot(scope, data)
	require.Equal(t, scope, g.Scope)
	require.NotNil(t, g.Connector)
	require.Equal(t, scope, *g.Connector)

	conn, err := g.Data.Nodes.Column("connector")
	require.NoError(t, err)
	require.Equal(t, cty.StringVal("warehouse"), conn[0])

	fn, err := g.Data.Edges.Column("function")
	require.NoError(t, err)
	require.Equal(t, cty.StringVal(graph.FunctionStatic), fn[0])
}

func TestSnapshot_KeepsDeclaredConnectorColumn(t *testing.T) {
	t.Parallel()

	scope := graph.Scope{Namespace: "default", Name: "warehouse"}
	data := graph.Data{
		Nodes: frame.MustNew(
			frame.Series{Name: "name", Values: []cty.Value{cty.StringVal("a")}},
			frame.Series{Name: "connector", Values: []cty.Value{cty.StringVal("elsewhere")}},
		),
	}

	g := Snapshot(scope, data)
	conn, err := g.Data.Nodes.Column("connector")
	require.NoError(t, err)
	require.Equal(t, cty.StringVal("elsewhere"), conn[0])
}
