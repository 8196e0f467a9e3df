// Package httpconn is the connector for remote graph entries:
//
//	connector "default" "edge-site" {
//	  kind    = "http"
//	  url     = "http://edge-site:8080/graph"
//	  timeout = "10s"
//	}
//
// The endpoint answers with {"nodes": [...], "edges": [...]}, each an
// array of flat objects; object keys become columns.
package httpconn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
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
const Kind = "http"

const defaultTimeout = 10 * time.Second

type options struct {
	URL     string `hcl:"url"`
	Timeout string `hcl:"timeout,optional"`
}

type payload struct {
	Nodes []map[string]any `json:"nodes"`
	Edges []map[string]any `json:"edges"`
}

// Connector fetches entries over HTTP.
type Connector struct {
	client *http.Client
}

var _ connector.Connector = (*Connector)(nil)

func New() *Connector {
	return &Connector{client: &http.Client{}}
}

func (c *Connector) Kind() string { return Kind }

// Interval defers to the pool default; remote endpoints should not be
// hammered.
func (c *Connector) Interval() time.Duration { return 0 }

func (c *Connector) Pull(ctx context.Context, specs []*registry.ConnectorSpec, sink connector.Sink) error {
	for _, spec := range specs {
		data, err := c.fetch(ctx, spec.Options)
		if err != nil {
			return fmt.Errorf("http: %s: %w", spec.Scope, err)
		}
		if err := sink.Insert(ctx, connector.Snapshot(spec.Scope, data)); err != nil {
			return fmt.Errorf("http: %s: %w", spec.Scope, err)
		}
	}
	return nil
}

func (c *Connector) fetch(ctx context.Context, body hcl.Body) (graph.Data, error) {
	var opts options
	if diags := gohcl.DecodeBody(body, nil, &opts); diags.HasErrors() {
		return graph.Data{}, fmt.Errorf("decode options: %w", diags)
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

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return graph.Data{}, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return graph.Data{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return graph.Data{}, fmt.Errorf("GET %s: %s", opts.URL, resp.Status)
	}

	var entries payload
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return graph.Data{}, fmt.Errorf("decode %s: %w", opts.URL, err)
	}
	nodes, err := tableFromObjects(entries.Nodes)
	if err != nil {
		return graph.Data{}, err
	}
	edges, err := tableFromObjects(entries.Edges)
	if err != nil {
		return graph.Data{}, err
	}
	return graph.Data{Nodes: nodes, Edges: edges}, nil
}

// tableFromObjects turns an array of flat JSON objects into a frame.
// The column set is the union of all keys, sorted; objects missing a
// key contribute a null cell.
func tableFromObjects(objects []map[string]any) (*frame.Table, error) {
	if len(objects) == 0 {
		return nil, nil
	}
	seen := make(map[string]bool)
	var names []string
	for _, obj := range objects {
		for key := range obj {
			if !seen[key] {
				seen[key] = true
				names = append(names, key)
			}
		}
	}
	sort.Strings(names)

	cols := make([]frame.Series, len(names))
	for i, name := range names {
		values := make([]cty.Value, len(objects))
		for j, obj := range objects {
			v, err := jsonValue(obj[name])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", name, err)
			}
			values[j] = v
		}
		cols[i] = frame.Series{Name: name, Values: values}
	}
	return frame.New(cols...)
}

func jsonValue(v any) (cty.Value, error) {
	switch v := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case bool:
		return cty.BoolVal(v), nil
	case float64:
		return cty.NumberFloatVal(v), nil
	case string:
		return cty.StringVal(v), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported value %T", v)
	}
}
