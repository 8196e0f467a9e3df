package frame

import (
	"encoding/json"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Tables serialize with dynamic value encoding so that a frame read
// back from the store carries the same cell types it was written with.

type tableJSON struct {
	Rows    int          `json:"rows"`
	Columns []seriesJSON `json:"columns"`
}

type seriesJSON struct {
	Name   string            `json:"name"`
	Values []json.RawMessage `json:"values"`
}

func (t *Table) MarshalJSON() ([]byte, error) {
	out := tableJSON{Rows: t.Len()}
	for _, col := range t.cols {
		values := make([]json.RawMessage, len(col.Values))
		for i, v := range col.Values {
			raw, err := ctyjson.Marshal(v, cty.DynamicPseudoType)
			if err != nil {
				return nil, fmt.Errorf("frame: marshal %s[%d]: %w", col.Name, i, err)
			}
			values[i] = raw
		}
		out.Columns = append(out.Columns, seriesJSON{Name: col.Name, Values: values})
	}
	return json.Marshal(out)
}

func (t *Table) UnmarshalJSON(b []byte) error {
	var in tableJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	cols := make([]Series, len(in.Columns))
	for i, col := range in.Columns {
		values := make([]cty.Value, len(col.Values))
		for j, raw := range col.Values {
			v, err := ctyjson.Unmarshal(raw, cty.DynamicPseudoType)
			if err != nil {
				return fmt.Errorf("frame: unmarshal %s[%d]: %w", col.Name, j, err)
			}
			values[j] = v
		}
		cols[i] = Series{Name: col.Name, Values: values}
	}
	parsed, err := New(cols...)
	if err != nil {
		return err
	}
	parsed.rows = in.Rows
	*t = *parsed
	return nil
}
