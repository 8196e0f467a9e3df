// Package function compiles stage templates and runs edge inference:
// a stage looks at every ordered pair of nodes, keeps the pairs its
// filter admits, and computes edge columns with its script.
package function

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/SmartX-Team/OpenARK-sub002/internal/frame"
	"github.com/SmartX-Team/OpenARK-sub002/internal/graph"
)

// Kind classifies a declared function.
type Kind string

const (
	// KindAnnotation marks a function that only documents intent; the
	// runner never executes it and inference ignores it.
	KindAnnotation Kind = "annotation"
	// KindScript marks an executable stage with a template.
	KindScript Kind = "script"
)

// ParseKind validates a declared kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindAnnotation, KindScript:
		return Kind(s), nil
	case "":
		return KindScript, nil
	default:
		return "", fmt.Errorf("function: unknown kind %q", s)
	}
}

// Template is the declared shape of a stage: an optional row filter
// and a script of column assignments. Assignments are separated by
// semicolons or newlines and evaluate in source order, so later
// assignments can read earlier outputs.
type Template struct {
	Filter string
	Script string
}

type assignment struct {
	name string
	expr hcl.Expression
}

// Stage is a compiled template.
type Stage struct {
	filter  hcl.Expression
	assigns []assignment
}

// Compile parses a template's filter and script.
func Compile(tpl Template) (*Stage, error) {
	s := &Stage{}
	if strings.TrimSpace(tpl.Filter) != "" {
		expr, diags := hclsyntax.ParseExpression([]byte(tpl.Filter), "filter", hcl.InitialPos)
		if diags.HasErrors() {
			return nil, fmt.Errorf("function: parse filter: %w", diags)
		}
		s.filter = expr
	}
	if strings.TrimSpace(tpl.Script) != "" {
		assigns, err := parseScript(tpl.Script)
		if err != nil {
			return nil, err
		}
		s.assigns = assigns
	}
	return s, nil
}

// parseScript parses "col = expr" assignments. Semicolons are line
// separators so one-line scripts read naturally in resource files.
func parseScript(script string) ([]assignment, error) {
	normalized := strings.ReplaceAll(script, ";", "\n")
	file, diags := hclsyntax.ParseConfig([]byte(normalized), "script", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("function: parse script: %w", diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("function: unexpected script body %T", file.Body)
	}
	if len(body.Blocks) > 0 {
		return nil, fmt.Errorf("function: script must contain only assignments")
	}
	assigns := make([]assignment, 0, len(body.Attributes))
	for _, attr := range body.Attributes {
		assigns = append(assigns, assignment{name: attr.Name, expr: attr.Expr})
	}
	sort.Slice(assigns, func(i, j int) bool {
		return assigns[i].expr.Range().Start.Line < assigns[j].expr.Range().Start.Line
	})
	return assigns, nil
}

// Outputs lists the columns the script assigns, in evaluation order.
func (s *Stage) Outputs() []string {
	out := make([]string, len(s.assigns))
	for i, a := range s.assigns {
		out[i] = a.name
	}
	return out
}

// InferEdges derives the stage's edges from a node frame. The result
// carries the metadata's src and sink columns, one column per script
// output, and the function column labeled with the stage name. An
// empty node frame infers an empty edge frame.
func (s *Stage) InferEdges(meta graph.Pinned, nodes *frame.Table, stageName string) (*frame.Table, error) {
	outNames := append([]string{meta.SrcCol, meta.SinkCol}, s.Outputs()...)
	if nodes.IsEmpty() {
		return frame.Empty(append(outNames, meta.FunctionCol)...), nil
	}

	fabric, err := nodes.CrossSelf(meta.NameCol, meta.SrcCol, meta.SinkCol)
	if err != nil {
		return nil, err
	}
	if s.filter != nil {
		fabric, err = fabric.FilterExpr(s.filter)
		if err != nil {
			return nil, err
		}
	}
	for _, a := range s.assigns {
		values := make([]cty.Value, fabric.Len())
		for i := range values {
			v, err := fabric.EvalRow(a.expr, i)
			if err != nil {
				return nil, fmt.Errorf("function: %s: %w", a.name, err)
			}
			values[i] = v
		}
		fabric, err = fabric.WithColumn(a.name, values)
		if err != nil {
			return nil, err
		}
	}
	edges, err := fabric.Select(outNames...)
	if err != nil {
		return nil, err
	}
	return edges.WithConstant(meta.FunctionCol, cty.StringVal(stageName)), nil
}
