package frame

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func strs(values ...string) []cty.Value {
	out := make([]cty.Value, len(values))
	for i, v := range values {
		out[i] = cty.StringVal(v)
	}
	return out
}

func nums(values ...int64) []cty.Value {
	out := make([]cty.Value, len(values))
	for i, v := range values {
		out[i] = cty.NumberIntVal(v)
	}
	return out
}

func TestNew_RejectsRaggedColumns(t *testing.T) {
	t.Parallel()

	_, err := New(
		Series{Name: "name", Values: strs("a", "b")},
		Series{Name: "supply", Values: nums(1)},
	)
	require.Error(t, err)
	require.Contains(t, err.Error(), "supply")
}

func TestNew_RejectsDuplicateNames(t *testing.T) {
	t.Parallel()

	_, err := New(
		Series{Name: "name", Values: strs("a")},
		Series{Name: "name", Values: strs("b")},
	)
	require.Error(t, err)
}

func TestColumn_MissingIsSchemaError(t *testing.T) {
	t.Parallel()

	table := MustNew(Series{Name: "name", Values: strs("a")})

	_, err := table.Column("supply")
	require.Error(t, err)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Equal(t, "supply", schemaErr.Column)
}

func TestSelect_KeepsRowCountWithoutColumns(t *testing.T) {
	t.Parallel()

	table := MustNew(Series{Name: "name", Values: strs("a", "b", "c")})

	got, err := table.Select()
	require.NoError(t, err)
	require.Equal(t, 3, got.Len())
	require.Equal(t, 0, got.Width())
}

func TestRename_IgnoresAbsentColumns(t *testing.T) {
	t.Parallel()

	table := MustNew(Series{Name: "id", Values: strs("a")})

	got, err := table.Rename(map[string]string{"id": "name", "ghost": "other"})
	require.NoError(t, err)
	require.True(t, got.Has("name"))
	require.False(t, got.Has("id"))
	require.False(t, got.Has("other"))
}

func TestWithColumn_ReplacesInPlace(t *testing.T) {
	t.Parallel()

	table := MustNew(
		Series{Name: "name", Values: strs("a", "b")},
		Series{Name: "supply", Values: nums(1, 2)},
	)

	got, err := table.WithColumn("supply", nums(3, 4))
	require.NoError(t, err)
	require.Equal(t, []string{"name", "supply"}, got.Names())

	values, err := got.Column("supply")
	require.NoError(t, err)
	require.Equal(t, nums(3, 4), values)

	// The receiver is untouched.
	values, err = table.Column("supply")
	require.NoError(t, err)
	require.Equal(t, nums(1, 2), values)
}

func TestConcat_UnionsColumnsWithNullFill(t *testing.T) {
	t.Parallel()

	top := MustNew(
		Series{Name: "name", Values: strs("a")},
		Series{Name: "supply", Values: nums(10)},
	)
	bottom := MustNew(
		Series{Name: "name", Values: strs("b")},
		Series{Name: "capacity", Values: nums(20)},
	)

	got, err := top.Concat(bottom)
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	require.Equal(t, []string{"name", "supply", "capacity"}, got.Names())

	supply, err := got.Column("supply")
	require.NoError(t, err)
	require.True(t, supply[1].IsNull())

	capacity, err := got.Column("capacity")
	require.NoError(t, err)
	require.True(t, capacity[0].IsNull())
}

func TestConcat_VariadicSkipsNil(t *testing.T) {
	t.Parallel()

	table := MustNew(Series{Name: "name", Values: strs("a")})

	got, err := Concat(nil, table, nil)
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())

	empty, err := Concat()
	require.NoError(t, err)
	require.Equal(t, 0, empty.Len())
}

func TestTake_ReordersRows(t *testing.T) {
	t.Parallel()

	table := MustNew(Series{Name: "name", Values: strs("a", "b", "c")})

	got := table.Take([]int{2, 0})
	values, err := got.Column("name")
	require.NoError(t, err)
	require.Equal(t, strs("c", "a"), values)
}

func TestJSON_RoundTrip(t *testing.T) {
	t.Parallel()

	table := MustNew(
		Series{Name: "name", Values: strs("a", "b")},
		Series{Name: "supply", Values: []cty.Value{cty.NumberIntVal(10), cty.NullVal(cty.DynamicPseudoType)}},
	)

	raw, err := json.Marshal(table)
	require.NoError(t, err)

	var got Table
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, 2, got.Len())
	require.Equal(t, []string{"name", "supply"}, got.Names())

	supply, err := got.Column("supply")
	require.NoError(t, err)
	require.True(t, supply[1].IsNull())
}

func TestStrings_RejectsNulls(t *testing.T) {
	t.Parallel()

	_, err := Strings([]cty.Value{cty.StringVal("a"), cty.NullVal(cty.String)})
	require.Error(t, err)
}

func TestInts_NullReadsAsZero(t *testing.T) {
	t.Parallel()

	got, err := Ints([]cty.Value{cty.NumberIntVal(7), cty.NullVal(cty.DynamicPseudoType)})
	require.NoError(t, err)
	require.Equal(t, []int64{7, 0}, got)
}
