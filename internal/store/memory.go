package store

import (
	"context"
	"sort"
	"sync"

	"github.com/SmartX-Team/OpenARK-sub002/internal/graph"
)

// Memory is the in-process GraphDB used by tests and by deployments
// that do not need snapshots to survive a restart.
type Memory struct {
	mu     sync.RWMutex
	graphs map[graph.Scope]graph.Graph
}

var _ GraphDB = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{graphs: make(map[graph.Scope]graph.Graph)}
}

func (m *Memory) Get(_ context.Context, scope graph.Scope) (*graph.Graph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.graphs[scope]; ok {
		return &g, nil
	}
	return nil, nil
}

func (m *Memory) Insert(_ context.Context, g graph.Graph) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.graphs[g.Scope] = g
	return nil
}

func (m *Memory) Delete(_ context.Context, scope graph.Scope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.graphs, scope)
	return nil
}

func (m *Memory) List(_ context.Context, filter graph.Filter) ([]graph.Graph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []graph.Graph
	for scope, g := range m.graphs {
		if filter.Contains(scope) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Scope, out[j].Scope
		if a.Namespace != b.Namespace {
			return a.Namespace < b.Namespace
		}
		return a.Name < b.Name
	})
	return out, nil
}

// Len reports the number of stored snapshots.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.graphs)
}

func (m *Memory) Close() error { return nil }
