// Package runner takes a solved graph apart again: it applies the
// flow each executable stage produced to the node supplies, then
// persists one sub-graph per connector so every data source sees its
// own slice of the outcome.
package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/zclconf/go-cty/cty"
	"golang.org/x/sync/errgroup"

	"github.com/SmartX-Team/OpenARK-sub002/internal/ctxlog"
	"github.com/SmartX-Team/OpenARK-sub002/internal/frame"
	"github.com/SmartX-Team/OpenARK-sub002/internal/function"
	"github.com/SmartX-Team/OpenARK-sub002/internal/graph"
	"github.com/SmartX-Team/OpenARK-sub002/internal/registry"
	"github.com/SmartX-Team/OpenARK-sub002/internal/store"
)

// Runner executes solved graphs against the store.
type Runner struct {
	db store.GraphDB
}

// New creates a runner writing through the given store.
func New(db store.GraphDB) *Runner {
	return &Runner{db: db}
}

// Execute applies a solved graph and returns it with updated node
// supplies. Stages run concurrently, one unit per function label on
// the edges; the first failing unit aborts the call. Static edges
// always apply; labels without a matching executable function, and
// annotation functions, are skipped.
func (r *Runner) Execute(ctx context.Context, reg *registry.Registry, g graph.Graph) (graph.Graph, error) {
	logger := ctxlog.FromContext(ctx).With("scope", g.Scope.String())

	nodes, err := r.applyStages(ctx, reg, g)
	if err != nil {
		return graph.Graph{}, err
	}
	g.Data.Nodes = nodes

	if err := r.disaggregate(ctx, g); err != nil {
		return graph.Graph{}, err
	}
	logger.Debug("graph executed", "nodes", g.Data.Nodes.Len(), "edges", g.Data.Edges.Len())
	return g, nil
}

// applyStages moves flow into supplies, one concurrent unit per
// stage partition of the edge frame.
func (r *Runner) applyStages(ctx context.Context, reg *registry.Registry, g graph.Graph) (*frame.Table, error) {
	meta := g.Metadata
	nodes, edges := g.Data.Nodes, g.Data.Edges
	if edges.IsEmpty() || nodes.IsEmpty() || !nodes.Has(meta.SupplyCol) {
		return nodes, nil
	}
	stageValues, err := edges.Column(meta.FunctionCol)
	if err != nil {
		return nil, err
	}
	stageNames, err := frame.Strings(stageValues)
	if err != nil {
		return nil, err
	}

	logger := ctxlog.FromContext(ctx)
	var mu sync.Mutex
	deltas := make(map[string]int64)
	group, ctx := errgroup.WithContext(ctx)
	for _, stage := range distinct(stageNames) {
		if !r.stageExecutes(reg, g.Scope.Namespace, stage) {
			logger.Debug("stage skipped", "stage", stage)
			continue
		}
		partition, err := edges.FilterEqual(meta.FunctionCol, cty.StringVal(stage))
		if err != nil {
			return nil, err
		}
		group.Go(func() error {
			part, err := supplyDeltas(partition, meta)
			if err != nil {
				return fmt.Errorf("runner: stage %s: %w", stage, err)
			}
			mu.Lock()
			for name, d := range part {
				deltas[name] += d
			}
			mu.Unlock()
			return ctx.Err()
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return shiftSupplies(nodes, meta, deltas)
}

// stageExecutes decides whether a function label on the edges is
// backed by something runnable.
func (r *Runner) stageExecutes(reg *registry.Registry, namespace, stage string) bool {
	if stage == graph.FunctionStatic {
		return true
	}
	spec, ok := reg.GetFunction(graph.Scope{Namespace: namespace, Name: stage})
	if !ok {
		return false
	}
	return spec.Kind != function.KindAnnotation
}

// supplyDeltas reads one stage's edges into per-node supply shifts:
// positive flow leaves the src and arrives at the sink.
func supplyDeltas(edges *frame.Table, meta graph.Pinned) (map[string]int64, error) {
	if !edges.Has(meta.FlowCol) {
		return nil, nil
	}
	srcValues, err := edges.Column(meta.SrcCol)
	if err != nil {
		return nil, err
	}
	srcs, err := frame.Strings(srcValues)
	if err != nil {
		return nil, err
	}
	sinkValues, err := edges.Column(meta.SinkCol)
	if err != nil {
		return nil, err
	}
	sinks, err := frame.Strings(sinkValues)
	if err != nil {
		return nil, err
	}
	flowValues, err := edges.Column(meta.FlowCol)
	if err != nil {
		return nil, err
	}
	flows, err := frame.Ints(flowValues)
	if err != nil {
		return nil, err
	}

	deltas := make(map[string]int64)
	for i, flow := range flows {
		if flow <= 0 {
			continue
		}
		deltas[srcs[i]] -= flow
		deltas[sinks[i]] += flow
	}
	return deltas, nil
}

// shiftSupplies applies the accumulated deltas to the supply column.
func shiftSupplies(nodes *frame.Table, meta graph.Pinned, deltas map[string]int64) (*frame.Table, error) {
	if len(deltas) == 0 {
		return nodes, nil
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
	supplies, err := frame.Ints(supplyValues)
	if err != nil {
		return nil, err
	}
	updated := make([]cty.Value, len(supplies))
	for i := range supplies {
		updated[i] = cty.NumberIntVal(supplies[i] + deltas[names[i]])
	}
	return nodes.WithColumn(meta.SupplyCol, updated)
}

// disaggregate writes one sub-graph per connector: the connector's
// nodes plus the edges staying inside them.
func (r *Runner) disaggregate(ctx context.Context, g graph.Graph) error {
	meta := g.Metadata
	nodes := g.Data.Nodes
	if nodes.IsEmpty() || !nodes.Has(meta.ConnectorCol) {
		return nil
	}
	connectorValues, err := nodes.Column(meta.ConnectorCol)
	if err != nil {
		return err
	}
	connectors, err := frame.Strings(connectorValues)
	if err != nil {
		return err
	}
	for _, name := range distinct(connectors) {
		sub, err := nodes.FilterEqual(meta.ConnectorCol, cty.StringVal(name))
		if err != nil {
			return err
		}
		edges, err := innerEdges(g.Data.Edges, meta, sub)
		if err != nil {
			return err
		}
		scope := graph.Scope{Namespace: g.Scope.Namespace, Name: name}
		connectorScope := scope
		err = r.db.Insert(ctx, graph.Graph{
			Scope:     scope,
			Connector: &connectorScope,
			Metadata:  meta,
			Data:      graph.Data{Nodes: sub, Edges: edges},
		})
		if err != nil {
			return fmt.Errorf("runner: persist %s: %w", scope, err)
		}
	}
	return nil
}

// innerEdges keeps the edges whose both endpoints belong to the node
// subset, so declared static edges survive the round trip.
func innerEdges(edges *frame.Table, meta graph.Pinned, nodes *frame.Table) (*frame.Table, error) {
	if edges.IsEmpty() {
		return edges, nil
	}
	nameValues, err := nodes.Column(meta.NameCol)
	if err != nil {
		return nil, err
	}
	names, err := frame.Strings(nameValues)
	if err != nil {
		return nil, err
	}
	member := make(map[string]bool, len(names))
	for _, name := range names {
		member[name] = true
	}
	srcValues, err := edges.Column(meta.SrcCol)
	if err != nil {
		return nil, err
	}
	srcs, err := frame.Strings(srcValues)
	if err != nil {
		return nil, err
	}
	sinkValues, err := edges.Column(meta.SinkCol)
	if err != nil {
		return nil, err
	}
	sinks, err := frame.Strings(sinkValues)
	if err != nil {
		return nil, err
	}
	keep := make([]int, 0, len(srcs))
	for i := range srcs {
		if member[srcs[i]] && member[sinks[i]] {
			keep = append(keep, i)
		}
	}
	return edges.Take(keep), nil
}

func distinct(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
