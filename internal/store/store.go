// Package store persists graph snapshots by scope. Writes replace the
// whole snapshot for a scope atomically; last write wins.
package store

import (
	"context"

	"github.com/SmartX-Team/OpenARK-sub002/internal/graph"
)

// GraphDB is the store contract. Get returns nil without error when
// the scope has no snapshot.
type GraphDB interface {
	Get(ctx context.Context, scope graph.Scope) (*graph.Graph, error)
	Insert(ctx context.Context, g graph.Graph) error
	Delete(ctx context.Context, scope graph.Scope) error
	List(ctx context.Context, filter graph.Filter) ([]graph.Graph, error)
	Close() error
}

// GetGlobal reads a namespace's merged, solved graph.
func GetGlobal(ctx context.Context, db GraphDB, namespace string) (*graph.Graph, error) {
	return db.Get(ctx, graph.GlobalScope(namespace))
}
