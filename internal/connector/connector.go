// Package connector runs the polling loops that keep the graph store
// fed. Each connector kind polls on its own interval, a declaration
// can override that cadence for itself, and the registry's read-once
// listings tell a loop when its declarations changed.
package connector

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SmartX-Team/OpenARK-sub002/internal/ctxlog"
	"github.com/SmartX-Team/OpenARK-sub002/internal/graph"
	"github.com/SmartX-Team/OpenARK-sub002/internal/metrics"
	"github.com/SmartX-Team/OpenARK-sub002/internal/registry"
)

// DefaultInterval is the polling interval for kinds that do not set
// their own.
const DefaultInterval = 15 * time.Second

// Sink receives the snapshots a pull produced. The graph store
// satisfies it.
type Sink interface {
	Insert(ctx context.Context, g graph.Graph) error
	Delete(ctx context.Context, scope graph.Scope) error
}

// Connector pulls graph snapshots for every declaration of its kind.
type Connector interface {
	// Kind names the connector; declarations select it by this name.
	Kind() string
	// Interval is the kind's polling interval; zero means
	// DefaultInterval.
	Interval() time.Duration
	// Pull fetches a snapshot per declaration into the sink.
	Pull(ctx context.Context, specs []*registry.ConnectorSpec, sink Sink) error
}

// Pool drives one polling loop per registered connector.
type Pool struct {
	registry   *registry.Registry
	sink       Sink
	metrics    *metrics.Metrics
	connectors []Connector
}

// NewPool assembles a pool. Metrics may be nil.
func NewPool(reg *registry.Registry, sink Sink, m *metrics.Metrics, connectors ...Connector) *Pool {
	return &Pool{registry: reg, sink: sink, metrics: m, connectors: connectors}
}

// Run polls until the context ends. Pull failures are logged and do
// not stop the loop; the next interval retries.
func (p *Pool) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	for _, c := range p.connectors {
		group.Go(func() error {
			p.runLoop(ctx, c)
			return nil
		})
	}
	return group.Wait()
}

func (p *Pool) runLoop(ctx context.Context, c Connector) {
	logger := ctxlog.FromContext(ctx).With("kind", c.Kind())
	kindInterval := c.Interval()
	if kindInterval <= 0 {
		kindInterval = DefaultInterval
	}

	// Declarations are cached between listings; the registry only
	// hands them out again when they changed. Each declaration keeps
	// its own due time so a declared interval overrides the kind's.
	var specs []*registry.ConnectorSpec
	var due []time.Time
	for {
		now := time.Now()
		if next, ok := p.registry.ListConnectors(c.Kind()); ok {
			specs = next
			due = make([]time.Time, len(specs))
			logger.Debug("connector declarations updated", "count", len(specs))
		}

		var batch []*registry.ConnectorSpec
		for i, spec := range specs {
			if due[i].After(now) {
				continue
			}
			batch = append(batch, spec)
			interval := spec.Interval
			if interval <= 0 {
				interval = kindInterval
			}
			due[i] = now.Add(interval)
		}
		if len(batch) > 0 {
			if err := c.Pull(ctx, batch, p.sink); err != nil {
				logger.Warn("pull failed", "error", err)
				if p.metrics != nil {
					p.metrics.PullFailures.WithLabelValues(c.Kind()).Inc()
				}
			} else if p.metrics != nil {
				p.metrics.PullsTotal.WithLabelValues(c.Kind()).Inc()
			}
		}

		// Sleep to the earliest due declaration, capped at the kind
		// interval so new declarations are noticed. Overrunning pulls
		// poll again right away but still honor cancellation.
		remaining := kindInterval
		for _, t := range due {
			if d := time.Until(t); d < remaining {
				remaining = d
			}
		}
		if remaining <= 0 {
			remaining = time.Nanosecond
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(remaining):
		}
	}
}
