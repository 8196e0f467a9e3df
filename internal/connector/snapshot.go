package connector

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/SmartX-Team/OpenARK-sub002/internal/graph"
)

// Snapshot normalizes pulled frames into a storable graph: default
// metadata, every node stamped with the producing connector's name,
// and edges without a function label tagged static.
func Snapshot(scope graph.Scope, data graph.Data) graph.Graph {
	meta := graph.DefaultPinned()
	if data.Nodes != nil && !data.Nodes.Has(meta.ConnectorCol) {
		data.Nodes = data.Nodes.WithConstant(meta.ConnectorCol, cty.StringVal(scope.Name))
	}
	data.Edges = graph.TagStaticEdges(data.Edges, meta)
	connector := scope
	return graph.Graph{
		Scope:     scope,
		Connector: &connector,
		Metadata:  meta,
		Data:      data,
	}
}
