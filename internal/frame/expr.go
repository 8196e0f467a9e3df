package frame

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// RowScope builds the variable scope for evaluating an expression
// against row i. Dotted columns are grouped under their prefix, so a
// cross-product frame with columns src, src.capacity, sink, ...
// exposes src and sink as objects: src != sink compares whole nodes
// and src.capacity reads an attribute. The bare prefix column holds
// the node name and is folded in under "name".
func (t *Table) RowScope(i int) map[string]cty.Value {
	scalars := make(map[string]cty.Value)
	groups := make(map[string]map[string]cty.Value)
	for _, col := range t.cols {
		if k := strings.IndexByte(col.Name, '.'); k > 0 {
			prefix, attr := col.Name[:k], col.Name[k+1:]
			if groups[prefix] == nil {
				groups[prefix] = make(map[string]cty.Value)
			}
			groups[prefix][attr] = col.Values[i]
			continue
		}
		scalars[col.Name] = col.Values[i]
	}
	vars := make(map[string]cty.Value, len(scalars)+len(groups))
	for name, v := range scalars {
		vars[name] = v
	}
	for prefix, attrs := range groups {
		if v, ok := vars[prefix]; ok {
			if _, has := attrs["name"]; !has {
				attrs["name"] = v
			}
		}
		vars[prefix] = cty.ObjectVal(attrs)
	}
	return vars
}

// EvalRow evaluates an expression against row i.
func (t *Table) EvalRow(expr hcl.Expression, i int) (cty.Value, error) {
	v, diags := expr.Value(&hcl.EvalContext{Variables: t.RowScope(i)})
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("frame: row %d: %w", i, diags)
	}
	return v, nil
}

// FilterExpr keeps the rows for which the boolean expression holds.
func (t *Table) FilterExpr(expr hcl.Expression) (*Table, error) {
	keep := make([]int, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		v, err := t.EvalRow(expr, i)
		if err != nil {
			return nil, err
		}
		b, err := convert.Convert(v, cty.Bool)
		if err != nil {
			return nil, fmt.Errorf("frame: filter is not boolean: %w", err)
		}
		if b.IsNull() {
			continue
		}
		if b.True() {
			keep = append(keep, i)
		}
	}
	return t.Take(keep), nil
}

// FilterEqual keeps the rows whose column equals the given value.
func (t *Table) FilterEqual(column string, want cty.Value) (*Table, error) {
	values, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	keep := make([]int, 0, len(values))
	for i, v := range values {
		if v.RawEquals(want) {
			keep = append(keep, i)
		}
	}
	return t.Take(keep), nil
}

// CrossSelf builds the self cross product of a node table: one row per
// ordered pair of rows, including self pairs. The pair's node names
// land in the leftName and rightName columns and every node column c
// is carried twice as leftName.c and rightName.c.
func (t *Table) CrossSelf(nameCol, leftName, rightName string) (*Table, error) {
	names, err := t.Column(nameCol)
	if err != nil {
		return nil, err
	}
	n := t.Len()
	left := make([]cty.Value, 0, n*n)
	right := make([]cty.Value, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			left = append(left, names[i])
			right = append(right, names[j])
		}
	}
	cols := []Series{
		{Name: leftName, Values: left},
		{Name: rightName, Values: right},
	}
	for _, col := range t.cols {
		lv := make([]cty.Value, 0, n*n)
		rv := make([]cty.Value, 0, n*n)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				lv = append(lv, col.Values[i])
				rv = append(rv, col.Values[j])
			}
		}
		cols = append(cols,
			Series{Name: leftName + "." + col.Name, Values: lv},
			Series{Name: rightName + "." + col.Name, Values: rv},
		)
	}
	return New(cols...)
}

// Strings converts a column's values to Go strings. Null cells are an
// error: name-like columns must be fully populated.
func Strings(values []cty.Value) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		if v.IsNull() {
			return nil, fmt.Errorf("frame: null value at row %d", i)
		}
		s, err := convert.Convert(v, cty.String)
		if err != nil {
			return nil, fmt.Errorf("frame: row %d: %w", i, err)
		}
		out[i] = s.AsString()
	}
	return out, nil
}

// Ints converts a column's values to int64, truncating fractions.
// Null cells, as produced by concat over mismatched frames, read as 0.
func Ints(values []cty.Value) ([]int64, error) {
	out := make([]int64, len(values))
	for i, v := range values {
		if v.IsNull() {
			continue
		}
		n, err := convert.Convert(v, cty.Number)
		if err != nil {
			return nil, fmt.Errorf("frame: row %d: %w", i, err)
		}
		f, _ := n.AsBigFloat().Int64()
		out[i] = f
	}
	return out, nil
}
