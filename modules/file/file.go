// Package file is the connector for local CSV tables:
//
//	connector "default" "site" {
//	  kind  = "file"
//	  nodes = "testdata/nodes.csv"
//	  edges = "testdata/edges.csv"
//	}
//
// The first CSV row names the columns; numeric cells become numbers,
// everything else stays a string.
package file

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
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
const Kind = "file"

// Interval matches the fake connector: local reads are cheap.
const Interval = 5 * time.Second

type options struct {
	Nodes string `hcl:"nodes,optional"`
	Edges string `hcl:"edges,optional"`
}

// Connector re-reads the declared files on every pull.
type Connector struct{}

var _ connector.Connector = (*Connector)(nil)

func New() *Connector { return &Connector{} }

func (c *Connector) Kind() string            { return Kind }
func (c *Connector) Interval() time.Duration { return Interval }

func (c *Connector) Pull(ctx context.Context, specs []*registry.ConnectorSpec, sink connector.Sink) error {
	for _, spec := range specs {
		data, err := load(spec.Options)
		if err != nil {
			return fmt.Errorf("file: %s: %w", spec.Scope, err)
		}
		if err := sink.Insert(ctx, connector.Snapshot(spec.Scope, data)); err != nil {
			return fmt.Errorf("file: %s: %w", spec.Scope, err)
		}
	}
	return nil
}

func load(body hcl.Body) (graph.Data, error) {
	var opts options
	if diags := gohcl.DecodeBody(body, nil, &opts); diags.HasErrors() {
		return graph.Data{}, fmt.Errorf("decode options: %w", diags)
	}
	var data graph.Data
	var err error
	if opts.Nodes != "" {
		if data.Nodes, err = readTable(opts.Nodes); err != nil {
			return graph.Data{}, err
		}
	}
	if opts.Edges != "" {
		if data.Edges, err = readTable(opts.Edges); err != nil {
			return graph.Data{}, err
		}
	}
	return data, nil
}

func readTable(path string) (*frame.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return frame.Empty(), nil
	}
	header := records[0]
	cols := make([]frame.Series, len(header))
	for i, name := range header {
		cols[i] = frame.Series{Name: name, Values: make([]cty.Value, 0, len(records)-1)}
	}
	for _, record := range records[1:] {
		for i := range header {
			cols[i].Values = append(cols[i].Values, cellValue(record[i]))
		}
	}
	return frame.New(cols...)
}

func cellValue(cell string) cty.Value {
	if cell == "" {
		return cty.NullVal(cty.DynamicPseudoType)
	}
	if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return cty.NumberIntVal(n)
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return cty.NumberFloatVal(f)
	}
	return cty.StringVal(cell)
}
