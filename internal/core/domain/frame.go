package domain

import "fmt"

// Frame is an ordered, rectangular table. Rows[i][j] holds the value of
// Columns[j] for row i. Values are JSON scalars: nil, bool, int64, float64,
// string or time.Time.
type Frame struct {
	Columns []string
	Rows    [][]any
}

// NewFrame checks that column names are unique and that every row carries
// exactly one value per column.
func NewFrame(columns []string, rows [][]any) (*Frame, error) {
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, ok := seen[c]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, c)
		}
		seen[c] = struct{}{}
	}

	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values, expected %d", ErrInvalidFrame, i, len(row), len(columns))
		}
	}

	if rows == nil {
		rows = [][]any{}
	}
	return &Frame{Columns: columns, Rows: rows}, nil
}

func (f *Frame) Len() int {
	return len(f.Rows)
}

func (f *Frame) Empty() bool {
	return len(f.Rows) == 0
}

// ColumnIndex returns the position of name, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// DropColumns returns a new frame without the named columns. Names that are
// not present are ignored, so dropping the same set twice is a no-op. The
// receiver is not modified and the remaining columns keep their order.
func (f *Frame) DropColumns(names []string) *Frame {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}

	keep := make([]int, 0, len(f.Columns))
	cols := make([]string, 0, len(f.Columns))
	for i, c := range f.Columns {
		if _, ok := drop[c]; ok {
			continue
		}
		keep = append(keep, i)
		cols = append(cols, c)
	}

	rows := make([][]any, len(f.Rows))
	for r, row := range f.Rows {
		out := make([]any, len(keep))
		for j, idx := range keep {
			out[j] = row[idx]
		}
		rows[r] = out
	}

	return &Frame{Columns: cols, Rows: rows}
}
