// Package promconn is the connector for graph data scraped from a
// Prometheus server. A declaration carries one instant query and maps
// its result vector onto node or edge columns:
//
//	connector "default" "latency" {
//	  kind = "prometheus"
//	  url  = "http://prometheus:9090"
//
//	  edges {
//	    query  = "network_latency_ms"
//	    src    = "src"
//	    sink   = "dst"
//	    extras = { unit_cost = "value" }
//	  }
//	}
//
// A mapped name selects a metric label; the reserved names "value"
// and "le" select the sample's value and timestamp.
package promconn

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/zclconf/go-cty/cty"

	"github.com/SmartX-Team/OpenARK-sub002/internal/connector"
	"github.com/SmartX-Team/OpenARK-sub002/internal/frame"
	"github.com/SmartX-Team/OpenARK-sub002/internal/graph"
	"github.com/SmartX-Team/OpenARK-sub002/internal/registry"
)

// Kind is the name declarations select this connector by.
const Kind = "prometheus"

const defaultTimeout = 10 * time.Second

type options struct {
	URL     string      `hcl:"url"`
	Timeout string      `hcl:"timeout,optional"`
	Nodes   *nodesQuery `hcl:"nodes,block"`
	Edges   *edgesQuery `hcl:"edges,block"`
}

type nodesQuery struct {
	Query  string            `hcl:"query"`
	Name   string            `hcl:"name"`
	Extras map[string]string `hcl:"extras,optional"`
}

type edgesQuery struct {
	Query  string            `hcl:"query"`
	Src    string            `hcl:"src"`
	Sink   string            `hcl:"sink"`
	Extras map[string]string `hcl:"extras,optional"`
}

// Connector evaluates declared PromQL queries into graph frames.
type Connector struct{}

var _ connector.Connector = (*Connector)(nil)

func New() *Connector { return &Connector{} }

func (c *Connector) Kind() string { return Kind }

// Interval defers to the pool default; scrape targets already
// aggregate, there is nothing to gain from polling faster.
func (c *Connector) Interval() time.Duration { return 0 }

func (c *Connector) Pull(ctx context.Context, specs []*registry.ConnectorSpec, sink connector.Sink) error {
	for _, spec := range specs {
		data, err := c.fetch(ctx, spec.Options)
		if err != nil {
			return fmt.Errorf("prometheus: %s: %w", spec.Scope, err)
		}
		if err := sink.Insert(ctx, connector.Snapshot(spec.Scope, data)); err != nil {
			return fmt.Errorf("prometheus: %s: %w", spec.Scope, err)
		}
	}
	return nil
}

func (c *Connector) fetch(ctx context.Context, body hcl.Body) (graph.Data, error) {
	var opts options
	if diags := gohcl.DecodeBody(body, nil, &opts); diags.HasErrors() {
		return graph.Data{}, fmt.Errorf("decode options: %w", diags)
	}
	if (opts.Nodes == nil) == (opts.Edges == nil) {
		return graph.Data{}, fmt.Errorf("declare exactly one of nodes or edges")
	}
	timeout := defaultTimeout
	if opts.Timeout != "" {
		parsed, err := time.ParseDuration(opts.Timeout)
		if err != nil {
			return graph.Data{}, fmt.Errorf("timeout: %w", err)
		}
		timeout = parsed
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := api.NewClient(api.Config{Address: opts.URL})
	if err != nil {
		return graph.Data{}, fmt.Errorf("client %s: %w", opts.URL, err)
	}
	papi := promv1.NewAPI(client)

	if opts.Nodes != nil {
		vector, err := query(ctx, papi, opts.Nodes.Query)
		if err != nil {
			return graph.Data{}, err
		}
		nodes, err := tableFromVector(vector, map[string]string{"name": opts.Nodes.Name}, opts.Nodes.Extras)
		if err != nil {
			return graph.Data{}, err
		}
		return graph.Data{Nodes: nodes}, nil
	}

	vector, err := query(ctx, papi, opts.Edges.Query)
	if err != nil {
		return graph.Data{}, err
	}
	edges, err := tableFromVector(vector, map[string]string{
		"src":  opts.Edges.Src,
		"sink": opts.Edges.Sink,
	}, opts.Edges.Extras)
	if err != nil {
		return graph.Data{}, err
	}
	return graph.Data{Edges: edges}, nil
}

func query(ctx context.Context, papi promv1.API, q string) (model.Vector, error) {
	result, _, err := papi.Query(ctx, q, time.Now())
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", q, err)
	}
	vector, ok := result.(model.Vector)
	if !ok {
		return nil, fmt.Errorf("query %q: expected an instant vector, got %s", q, result.Type())
	}
	return vector, nil
}

// tableFromVector maps a result vector onto columns: the required
// columns first, then extras in sorted column order. Each sample is
// one row.
func tableFromVector(vector model.Vector, required map[string]string, extras map[string]string) (*frame.Table, error) {
	if len(vector) == 0 {
		return nil, nil
	}
	var names []string
	for name := range required {
		names = append(names, name)
	}
	sort.Strings(names)
	var extraNames []string
	for name := range extras {
		extraNames = append(extraNames, name)
	}
	sort.Strings(extraNames)

	cols := make([]frame.Series, 0, len(names)+len(extraNames))
	for _, name := range names {
		cols = append(cols, column(vector, name, required[name]))
	}
	for _, name := range extraNames {
		cols = append(cols, column(vector, name, extras[name]))
	}
	return frame.New(cols...)
}

// column reads one mapped value per sample. "value" is the sample's
// value, "le" its timestamp, anything else a metric label; samples
// missing the label contribute a null cell.
func column(vector model.Vector, name, key string) frame.Series {
	values := make([]cty.Value, len(vector))
	for i, sample := range vector {
		switch key {
		case "value":
			values[i] = cty.NumberFloatVal(float64(sample.Value))
		case "le":
			values[i] = cty.NumberIntVal(int64(sample.Timestamp))
		default:
			label, ok := sample.Metric[model.LabelName(key)]
			if !ok {
				values[i] = cty.NullVal(cty.DynamicPseudoType)
				continue
			}
			values[i] = cty.StringVal(string(label))
		}
	}
	return frame.Series{Name: name, Values: values}
}
