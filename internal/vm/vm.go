// Package vm is the engine's heartbeat. Each tick it walks the
// declared problems: merge the namespace's stored graphs into one,
// derive edges through the declared functions, solve, and hand the
// solved graph to the runner.
package vm

import (
	"context"
	"fmt"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/SmartX-Team/OpenARK-sub002/internal/ctxlog"
	"github.com/SmartX-Team/OpenARK-sub002/internal/frame"
	"github.com/SmartX-Team/OpenARK-sub002/internal/function"
	"github.com/SmartX-Team/OpenARK-sub002/internal/graph"
	"github.com/SmartX-Team/OpenARK-sub002/internal/metrics"
	"github.com/SmartX-Team/OpenARK-sub002/internal/pipeline"
	"github.com/SmartX-Team/OpenARK-sub002/internal/registry"
	"github.com/SmartX-Team/OpenARK-sub002/internal/runner"
	"github.com/SmartX-Team/OpenARK-sub002/internal/solver"
	"github.com/SmartX-Team/OpenARK-sub002/internal/store"
)

// DefaultInterval is the tick period when none is configured.
const DefaultInterval = 5 * time.Second

// VM drives the solve loop.
type VM struct {
	registry *registry.Registry
	db       store.GraphDB
	runner   *runner.Runner
	metrics  *metrics.Metrics
	interval time.Duration
}

// New creates a vm. A non-positive interval falls back to
// DefaultInterval.
func New(reg *registry.Registry, db store.GraphDB, run *runner.Runner, m *metrics.Metrics, interval time.Duration) *VM {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &VM{registry: reg, db: db, runner: run, metrics: m, interval: interval}
}

// Run ticks until the context ends. A failing tick is logged and the
// loop keeps going; only context cancellation stops it.
func (vm *VM) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	for {
		started := time.Now()
		if err := vm.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("tick failed", "error", err)
		}
		remaining := vm.interval - time.Since(started)
		if remaining <= 0 {
			remaining = time.Nanosecond
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(remaining):
		}
	}
}

// Tick runs every declared problem once. Problems are independent: a
// failing one is logged and the rest still run; the first error comes
// back to the caller afterwards.
func (vm *VM) Tick(ctx context.Context) error {
	started := time.Now()
	defer func() {
		vm.metrics.TicksTotal.Inc()
		vm.metrics.TickSeconds.Observe(time.Since(started).Seconds())
	}()

	logger := ctxlog.FromContext(ctx)
	var firstErr error
	for _, problem := range vm.registry.ListProblems() {
		if err := vm.solve(ctx, problem); err != nil {
			logger.Warn("problem failed", "problem", problem.Scope.String(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if graphs, err := vm.db.List(ctx, graph.All()); err == nil {
		vm.metrics.GraphsStored.Set(float64(len(graphs)))
	}
	return firstErr
}

// solve runs one problem end to end.
func (vm *VM) solve(ctx context.Context, problem *registry.ProblemSpec) error {
	logger := ctxlog.FromContext(ctx).With("problem", problem.Scope.String())
	meta := problem.Metadata.ToPinned()

	data, err := vm.merge(ctx, problem.Scope.Namespace, meta)
	if err != nil {
		return err
	}
	if data.Nodes.IsEmpty() {
		logger.Debug("no nodes, skipping")
		return nil
	}

	stages, ok := vm.stages(problem)
	if !ok {
		logger.Warn("no function chain covers the problem claim")
		return nil
	}
	edges, err := vm.inferEdges(meta, data, stages)
	if err != nil {
		return err
	}
	data.Edges = edges
	if data.Edges.IsEmpty() {
		logger.Debug("no edges, skipping")
		return nil
	}

	result, err := vm.runSolver(ctx, data, meta)
	if err != nil {
		return err
	}
	vm.metrics.SolvesTotal.WithLabelValues(result.Status.String()).Inc()
	if result.Status != solver.StatusOptimal {
		logger.Warn("solve not optimal", "status", result.Status.String())
		return nil
	}
	if problem.Verbose {
		logger.Info("solved",
			"nodes", data.Nodes.Len(),
			"edges", result.Edges.Len(),
			"total_flow", result.TotalFlow,
			"total_cost", result.TotalCost,
		)
	}

	solved := graph.Graph{
		Scope:    graph.GlobalScope(problem.Scope.Namespace),
		Metadata: meta,
		Data:     graph.Data{Nodes: data.Nodes, Edges: result.Edges},
	}
	solved, err = vm.runner.Execute(ctx, vm.registry, solved)
	if err != nil {
		return err
	}
	return vm.db.Insert(ctx, solved)
}

// merge folds every connector graph of the namespace into one frame
// pair under the problem's metadata. The namespace's previous global
// snapshot is left out; it is this tick's output, not its input.
func (vm *VM) merge(ctx context.Context, namespace string, meta graph.Pinned) (graph.Data, error) {
	graphs, err := vm.db.List(ctx, graph.InNamespace(namespace))
	if err != nil {
		return graph.Data{}, err
	}
	var nodeFrames, edgeFrames []*frame.Table
	for _, g := range graphs {
		if g.Scope.IsGlobal() {
			continue
		}
		cast, err := graph.CastData(g.Data, g.Metadata, meta)
		if err != nil {
			return graph.Data{}, fmt.Errorf("vm: cast %s: %w", g.Scope, err)
		}
		if cast.Nodes != nil {
			nodeFrames = append(nodeFrames, cast.Nodes)
		}
		if cast.Edges != nil {
			edgeFrames = append(edgeFrames, cast.Edges)
		}
	}
	nodes, err := frame.Concat(nodeFrames...)
	if err != nil {
		return graph.Data{}, err
	}
	edges, err := frame.Concat(edgeFrames...)
	if err != nil {
		return graph.Data{}, err
	}
	return graph.Data{Nodes: nodes, Edges: edges}, nil
}

// stages selects the functions this problem runs, in order. Without a
// claim that is every function of the problem's namespace as
// registered; with one it is the first chain the capability resolver
// finds. ok is false only when a claim exists and nothing satisfies it.
func (vm *VM) stages(problem *registry.ProblemSpec) ([]*registry.FunctionSpec, bool) {
	var specs []*registry.FunctionSpec
	for _, spec := range vm.registry.ListFunctions() {
		if spec.Scope.Namespace == problem.Scope.Namespace {
			specs = append(specs, spec)
		}
	}
	if len(problem.Src) == 0 && len(problem.Sink) == 0 {
		return specs, true
	}

	arena := pipeline.NewArena()
	for _, spec := range specs {
		arena.Insert(pipeline.Descriptor{
			Provides: spec.Provides,
			Requires: spec.Requires,
		})
	}
	chains, ok := arena.Resolve(pipeline.Claim{
		Src:     problem.Src,
		Sink:    problem.Sink,
		Fastest: true,
	})
	if !ok {
		return nil, false
	}
	if len(chains) == 0 {
		return nil, true
	}
	chain := chains[0]
	selected := make([]*registry.FunctionSpec, len(chain))
	for i, idx := range chain {
		selected[i] = specs[idx]
	}
	return selected, true
}

// inferEdges rebuilds the derived edges for this tick: declared static
// edges survive, everything previously inferred is replaced by what
// the selected stages produce now.
func (vm *VM) inferEdges(meta graph.Pinned, data graph.Data, stages []*registry.FunctionSpec) (*frame.Table, error) {
	static := graph.TagStaticEdges(data.Edges, meta)
	if !static.IsEmpty() {
		var err error
		static, err = static.FilterEqual(meta.FunctionCol, cty.StringVal(graph.FunctionStatic))
		if err != nil {
			return nil, err
		}
	}

	frames := []*frame.Table{static}
	for _, spec := range stages {
		if spec.Kind != function.KindScript || spec.Stage == nil {
			continue
		}
		inferred, err := spec.Stage.InferEdges(meta, data.Nodes, spec.Scope.Name)
		if err != nil {
			return nil, fmt.Errorf("vm: infer %s: %w", spec.Scope, err)
		}
		frames = append(frames, inferred)
	}
	return frame.Concat(frames...)
}

// runSolver picks the problem class from the columns present and
// solves off the tick goroutine, so cancellation is honored even
// mid-solve.
func (vm *VM) runSolver(ctx context.Context, data graph.Data, meta graph.Pinned) (*solver.Result, error) {
	type outcome struct {
		result *solver.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		var o outcome
		if data.Nodes.Has(meta.SupplyCol) && data.Edges.Has(meta.UnitCostCol) {
			o.result, o.err = solver.MinCostFlow(data, meta)
		} else {
			o.result, o.err = solver.MaxFlow(data, meta)
		}
		done <- o
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-done:
		return o.result, o.err
	}
}
