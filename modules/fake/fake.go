// Package fake is the connector for declared, inline graph data. A
// fake connector block carries its node and edge tables directly:
//
//	connector "default" "warehouse" {
//	  kind = "fake"
//	  nodes {
//	    name     = ["a", "b"]
//	    capacity = [300, 300]
//	    supply   = [300, 0]
//	  }
//	  edges {
//	    src      = ["a"]
//	    sink     = ["b"]
//	    capacity = [50]
//	  }
//	}
package fake

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/zclconf/go-cty/cty"

	"github.com/SmartX-Team/OpenARK-sub002/internal/connector"
	"github.com/SmartX-Team/OpenARK-sub002/internal/frame"
	"github.com/SmartX-Team/OpenARK-sub002/internal/graph"
	"github.com/SmartX-Team/OpenARK-sub002/internal/registry"
)

// Kind is the name declarations select this connector by.
const Kind = "fake"

// Interval is short: inline data is cheap to publish and the demos
// built on it want quick convergence.
const Interval = 5 * time.Second

type options struct {
	Nodes *tableBlock `hcl:"nodes,block"`
	Edges *tableBlock `hcl:"edges,block"`
}

type tableBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// Connector publishes declared tables on every pull.
type Connector struct{}

var _ connector.Connector = (*Connector)(nil)

func New() *Connector { return &Connector{} }

func (c *Connector) Kind() string            { return Kind }
func (c *Connector) Interval() time.Duration { return Interval }

func (c *Connector) Pull(ctx context.Context, specs []*registry.ConnectorSpec, sink connector.Sink) error {
	for _, spec := range specs {
		data, err := decode(spec.Options)
		if err != nil {
			return fmt.Errorf("fake: %s: %w", spec.Scope, err)
		}
		if err := sink.Insert(ctx, connector.Snapshot(spec.Scope, data)); err != nil {
			return fmt.Errorf("fake: %s: %w", spec.Scope, err)
		}
	}
	return nil
}

func decode(body hcl.Body) (graph.Data, error) {
	var opts options
	if diags := gohcl.DecodeBody(body, nil, &opts); diags.HasErrors() {
		return graph.Data{}, fmt.Errorf("decode options: %w", diags)
	}
	var data graph.Data
	var err error
	if opts.Nodes != nil {
		if data.Nodes, err = tableFromBody(opts.Nodes.Body); err != nil {
			return graph.Data{}, fmt.Errorf("nodes: %w", err)
		}
	}
	if opts.Edges != nil {
		if data.Edges, err = tableFromBody(opts.Edges.Body); err != nil {
			return graph.Data{}, fmt.Errorf("edges: %w", err)
		}
	}
	return data, nil
}

// tableFromBody reads a block of list attributes as columns, in
// source order.
func tableFromBody(body hcl.Body) (*frame.Table, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("read columns: %w", diags)
	}
	ordered := make([]*hcl.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		ordered = append(ordered, attr)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i].Range.Start, ordered[j].Range.Start
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})

	cols := make([]frame.Series, 0, len(ordered))
	for _, attr := range ordered {
		v, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("column %s: %w", attr.Name, diags)
		}
		if !v.CanIterateElements() {
			return nil, fmt.Errorf("column %s: expected a list, got %s", attr.Name, v.Type().FriendlyName())
		}
		var values []cty.Value
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			values = append(values, ev)
		}
		cols = append(cols, frame.Series{Name: attr.Name, Values: values})
	}
	return frame.New(cols...)
}
