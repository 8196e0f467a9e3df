// Package frame implements the columnar tables that graph payloads are
// made of. A Table holds named columns of cty values; every operation
// returns a new Table and leaves the receiver untouched, so frames can
// be shared between the tick loop, the solver goroutine and the store
// without locking.
package frame

import (
	"fmt"
	"slices"

	"github.com/zclconf/go-cty/cty"
)

// SchemaError reports a reference to a column the frame does not have.
// Callers that partition or cast frames match on it with errors.As.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("frame: column %q not found", e.Column)
}

// Series is a single named column.
type Series struct {
	Name   string
	Values []cty.Value
}

// Frame is the read surface of a columnar table. It is sealed: Table
// is the only implementation, and the engine's operations are defined
// on Table directly.
type Frame interface {
	Len() int
	Names() []string
	Column(name string) ([]cty.Value, error)

	sealedFrame()
}

// Table is the concrete columnar frame.
type Table struct {
	cols   []Series
	byName map[string]int
	rows   int
}

var _ Frame = (*Table)(nil)

func (t *Table) sealedFrame() {}

// New builds a table from columns. All columns must have the same
// length and unique, non-empty names.
func New(cols ...Series) (*Table, error) {
	t := &Table{byName: make(map[string]int, len(cols))}
	for i, col := range cols {
		if col.Name == "" {
			return nil, fmt.Errorf("frame: column %d has no name", i)
		}
		if _, dup := t.byName[col.Name]; dup {
			return nil, fmt.Errorf("frame: duplicate column %q", col.Name)
		}
		if i == 0 {
			t.rows = len(col.Values)
		} else if len(col.Values) != t.rows {
			return nil, fmt.Errorf("frame: column %q has %d rows, want %d", col.Name, len(col.Values), t.rows)
		}
		t.byName[col.Name] = i
		t.cols = append(t.cols, col)
	}
	return t, nil
}

// MustNew is New for statically known columns, typically fixtures.
func MustNew(cols ...Series) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Empty returns a zero-row table with the given column names.
func Empty(names ...string) *Table {
	cols := make([]Series, len(names))
	for i, name := range names {
		cols[i] = Series{Name: name}
	}
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Len reports the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.rows
}

// IsEmpty reports whether the table has no rows.
func (t *Table) IsEmpty() bool { return t.Len() == 0 }

// Width reports the number of columns.
func (t *Table) Width() int { return len(t.cols) }

// Names returns the column names in declaration order.
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i, col := range t.cols {
		names[i] = col.Name
	}
	return names
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.byName[name]
	return ok
}

// Column returns the values of the named column. The slice is shared;
// callers must not mutate it.
func (t *Table) Column(name string) ([]cty.Value, error) {
	if t != nil {
		if i, ok := t.byName[name]; ok {
			return t.cols[i].Values, nil
		}
	}
	return nil, &SchemaError{Column: name}
}

// Select returns a table with exactly the named columns, in the given
// order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]Series, 0, len(names))
	for _, name := range names {
		values, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, Series{Name: name, Values: values})
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	// Preserve row count for zero-column selections.
	out.rows = t.Len()
	return out, nil
}

// Rename returns a table with columns renamed per the mapping. Names
// absent from the table are ignored, mirroring a metadata cast over a
// partially populated frame.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	cols := make([]Series, len(t.cols))
	for i, col := range t.cols {
		if to, ok := mapping[col.Name]; ok {
			col.Name = to
		}
		cols[i] = col
	}
	return New(cols...)
}

// WithColumn returns a table with the column set to the given values,
// replacing any column of the same name.
func (t *Table) WithColumn(name string, values []cty.Value) (*Table, error) {
	if t.Len() != len(values) && t.Width() > 0 {
		return nil, fmt.Errorf("frame: column %q has %d rows, want %d", name, len(values), t.Len())
	}
	cols := slices.Clone(t.cols)
	if i, ok := t.byName[name]; ok {
		cols[i] = Series{Name: name, Values: values}
	} else {
		cols = append(cols, Series{Name: name, Values: values})
	}
	return New(cols...)
}

// WithConstant returns a table with a column holding the same value in
// every row.
func (t *Table) WithConstant(name string, v cty.Value) *Table {
	values := make([]cty.Value, t.Len())
	for i := range values {
		values[i] = v
	}
	out, err := t.WithColumn(name, values)
	if err != nil {
		panic(err) // lengths match by construction
	}
	return out
}

// Take returns a table with only the given rows, in the given order.
func (t *Table) Take(rows []int) *Table {
	cols := make([]Series, len(t.cols))
	for i, col := range t.cols {
		values := make([]cty.Value, len(rows))
		for j, r := range rows {
			values[j] = col.Values[r]
		}
		cols[i] = Series{Name: col.Name, Values: values}
	}
	out, err := New(cols...)
	if err != nil {
		panic(err)
	}
	out.rows = len(rows)
	return out
}

// Concat stacks tables top to bottom, nil tables included as nothing.
func Concat(tables ...*Table) (*Table, error) {
	out := Empty()
	for _, t := range tables {
		var err error
		if out, err = out.Concat(t); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Concat appends other's rows below t's. The result carries the union
// of both column sets; cells a side does not have are null.
func (t *Table) Concat(other *Table) (*Table, error) {
	if t == nil || t.Width() == 0 && t.Len() == 0 {
		if other == nil {
			return Empty(), nil
		}
		return other, nil
	}
	if other == nil || other.Width() == 0 && other.Len() == 0 {
		return t, nil
	}
	names := t.Names()
	for _, name := range other.Names() {
		if !t.Has(name) {
			names = append(names, name)
		}
	}
	null := cty.NullVal(cty.DynamicPseudoType)
	cols := make([]Series, len(names))
	for i, name := range names {
		values := make([]cty.Value, 0, t.Len()+other.Len())
		if top, err := t.Column(name); err == nil {
			values = append(values, top...)
		} else {
			for range t.Len() {
				values = append(values, null)
			}
		}
		if bottom, err := other.Column(name); err == nil {
			values = append(values, bottom...)
		} else {
			for range other.Len() {
				values = append(values, null)
			}
		}
		cols[i] = Series{Name: name, Values: values}
	}
	return New(cols...)
}
