package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SmartX-Team/OpenARK-sub002/internal/graph"
)

func connectorAt(namespace, name, kind string) *ConnectorSpec {
	return &ConnectorSpec{
		Scope: graph.Scope{Namespace: namespace, Name: name},
		Kind:  kind,
	}
}

func TestListConnectors_FirstListingReturnsEverything(t *testing.T) {
	t.Parallel()

	reg := New()
	reg.InsertConnector(connectorAt("default", "b", "fake"))
	reg.InsertConnector(connectorAt("default", "a", "fake"))

	specs, ok := reg.ListConnectors("fake")
	require.True(t, ok)
	require.Len(t, specs, 2)
	require.Equal(t, "a", specs[0].Scope.Name)
	require.Equal(t, "b", specs[1].Scope.Name)
}

func TestListConnectors_ReadOnce(t *testing.T) {
	t.Parallel()

	reg := New()
	reg.InsertConnector(connectorAt("default", "a", "fake"))

	_, ok := reg.ListConnectors("fake")
	require.True(t, ok)

	// Nothing changed since the last listing.
	specs, ok := reg.ListConnectors("fake")
	require.False(t, ok)
	require.Nil(t, specs)

	// A change to the kind makes the next listing return again.
	reg.InsertConnector(connectorAt("default", "b", "fake"))
	specs, ok = reg.ListConnectors("fake")
	require.True(t, ok)
	require.Len(t, specs, 2)
}

func TestListConnectors_UntrackedKindChangesAreNotRecorded(t *testing.T) {
	t.Parallel()

	reg := New()

	// Inserting before any listing does not mark the kind dirty; the
	// first listing returns everything regardless.
	reg.InsertConnector(connectorAt("default", "a", "fake"))
	specs, ok := reg.ListConnectors("fake")
	require.True(t, ok)
	require.Len(t, specs, 1)

	_, ok = reg.ListConnectors("fake")
	require.False(t, ok)
}

func TestListConnectors_KindChangeTouchesBothKinds(t *testing.T) {
	t.Parallel()

	reg := New()
	reg.InsertConnector(connectorAt("default", "a", "fake"))
	_, ok := reg.ListConnectors("fake")
	require.True(t, ok)
	_, ok = reg.ListConnectors("file")
	require.True(t, ok)

	// Redeclaring the connector under another kind updates both loops.
	reg.InsertConnector(connectorAt("default", "a", "file"))

	specs, ok := reg.ListConnectors("fake")
	require.True(t, ok)
	require.Empty(t, specs)

	specs, ok = reg.ListConnectors("file")
	require.True(t, ok)
	require.Len(t, specs, 1)
}

func TestDeleteConnector_MarksKind(t *testing.T) {
	t.Parallel()

	reg := New()
	reg.InsertConnector(connectorAt("default", "a", "fake"))
	_, ok := reg.ListConnectors("fake")
	require.True(t, ok)

	reg.DeleteConnector(graph.Scope{Namespace: "default", Name: "a"})

	specs, ok := reg.ListConnectors("fake")
	require.True(t, ok)
	require.Empty(t, specs)
}

func TestListFunctions_RegistrationOrder(t *testing.T) {
	t.Parallel()

	reg := New()
	reg.InsertFunction(&FunctionSpec{Scope: graph.Scope{Namespace: "default", Name: "z"}})
	reg.InsertFunction(&FunctionSpec{Scope: graph.Scope{Namespace: "default", Name: "a"}})
	reg.InsertFunction(&FunctionSpec{Scope: graph.Scope{Namespace: "default", Name: "m"}})

	// Re-inserting keeps the original position.
	reg.InsertFunction(&FunctionSpec{Scope: graph.Scope{Namespace: "default", Name: "z"}})

	specs := reg.ListFunctions()
	require.Len(t, specs, 3)
	require.Equal(t, "z", specs[0].Scope.Name)
	require.Equal(t, "a", specs[1].Scope.Name)
	require.Equal(t, "m", specs[2].Scope.Name)

	reg.DeleteFunction(graph.Scope{Namespace: "default", Name: "a"})
	specs = reg.ListFunctions()
	require.Len(t, specs, 2)
	require.Equal(t, "z", specs[0].Scope.Name)
	require.Equal(t, "m", specs[1].Scope.Name)
}

func TestListProblems_SortedByScope(t *testing.T) {
	t.Parallel()

	reg := New()
	reg.InsertProblem(&ProblemSpec{Scope: graph.Scope{Namespace: "b", Name: "x"}})
	reg.InsertProblem(&ProblemSpec{Scope: graph.Scope{Namespace: "a", Name: "y"}})
	reg.InsertProblem(&ProblemSpec{Scope: graph.Scope{Namespace: "a", Name: "x"}})

	specs := reg.ListProblems()
	require.Len(t, specs, 3)
	require.Equal(t, graph.Scope{Namespace: "a", Name: "x"}, specs[0].Scope)
	require.Equal(t, graph.Scope{Namespace: "a", Name: "y"}, specs[1].Scope)
	require.Equal(t, graph.Scope{Namespace: "b", Name: "x"}, specs[2].Scope)
}
