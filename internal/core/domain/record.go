package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is one result row. It marshals to a JSON object whose keys appear in
// column order, original columns first and predictions after.
type Record struct {
	Columns []string
	Values  []any
}

func (r Record) Get(column string) (any, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.Values[i], true
		}
	}
	return nil, false
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := json.Marshal(r.Values[i])
		if err != nil {
			return nil, fmt.Errorf("marshal column %q: %w", c, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Merge appends the named prediction columns to every row of the original
// frame. predictions must have one row per frame row and one value per name.
func Merge(frame *Frame, names []string, predictions [][]float64) ([]Record, error) {
	if len(predictions) != frame.Len() {
		return nil, fmt.Errorf("%w: model returned %d rows for %d input rows", ErrSchemaMismatch, len(predictions), frame.Len())
	}
	for _, n := range names {
		if frame.ColumnIndex(n) >= 0 {
			return nil, fmt.Errorf("%w: %q", ErrOutputColumnConflict, n)
		}
	}

	columns := make([]string, 0, len(frame.Columns)+len(names))
	columns = append(columns, frame.Columns...)
	columns = append(columns, names...)

	records := make([]Record, frame.Len())
	for i, row := range frame.Rows {
		if len(predictions[i]) != len(names) {
			return nil, fmt.Errorf("%w: model produced %d output columns, %d names configured", ErrSchemaMismatch, len(predictions[i]), len(names))
		}
		values := make([]any, 0, len(columns))
		values = append(values, row...)
		for _, p := range predictions[i] {
			values = append(values, p)
		}
		records[i] = Record{Columns: columns, Values: values}
	}
	return records, nil
}
