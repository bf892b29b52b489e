package table

import (
	"errors"
	"fmt"
	"sort"
)

// ErrColumnNotFound is returned when an operation names a column the table lacks.
var ErrColumnNotFound = errors.New("column not found")

// Table is an ordered header plus rectangular rows of Values.
// Methods never mutate the receiver; transformations return a new Table.
type Table struct {
	header []string
	rows   [][]Value
}

// New builds a table from a header and rows. Short rows are padded with
// Missing and long rows are truncated to the header width.
func New(header []string, rows [][]Value) *Table {
	h := make([]string, len(header))
	copy(h, header)
	out := make([][]Value, len(rows))
	for i, r := range rows {
		row := make([]Value, len(h))
		copy(row, r)
		out[i] = row
	}
	return &Table{header: h, rows: out}
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

// Columns returns a copy of the header.
func (t *Table) Columns() []string {
	h := make([]string, len(t.header))
	copy(h, t.header)
	return h
}

// Index returns the position of the named column, or -1.
// The first match wins when names repeat.
func (t *Table) Index(name string) int {
	for i, h := range t.header {
		if h == name {
			return i
		}
	}
	return -1
}

func (t *Table) mustIndex(name string) (int, error) {
	i := t.Index(name)
	if i < 0 {
		return -1, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return i, nil
}

// At returns the cell at row i, column j.
func (t *Table) At(i, j int) Value { return t.rows[i][j] }

// Row returns a copy of row i.
func (t *Table) Row(i int) []Value {
	r := make([]Value, len(t.rows[i]))
	copy(r, t.rows[i])
	return r
}

// Column returns a copy of the named column's values.
func (t *Table) Column(name string) ([]Value, error) {
	j, err := t.mustIndex(name)
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, nil
}

// WithColumn replaces the named column, or appends it when absent.
func (t *Table) WithColumn(name string, vals []Value) (*Table, error) {
	if len(vals) != len(t.rows) {
		return nil, fmt.Errorf("column %q: got %d values for %d rows", name, len(vals), len(t.rows))
	}
	j := t.Index(name)
	header := t.Columns()
	if j < 0 {
		header = append(header, name)
	}
	rows := make([][]Value, len(t.rows))
	for i, r := range t.rows {
		row := make([]Value, len(header))
		copy(row, r)
		if j < 0 {
			row[len(header)-1] = vals[i]
		} else {
			row[j] = vals[i]
		}
		rows[i] = row
	}
	return &Table{header: header, rows: rows}, nil
}

// Coerce returns a table whose named columns hold only Numbers or Missing.
func (t *Table) Coerce(names ...string) (*Table, error) {
	out := t
	for _, name := range names {
		col, err := out.Column(name)
		if err != nil {
			return nil, err
		}
		for i, v := range col {
			col[i] = ToNumber(v)
		}
		if out, err = out.WithColumn(name, col); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Select projects the table onto the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	idx := make([]int, len(names))
	for k, n := range names {
		j, err := t.mustIndex(n)
		if err != nil {
			return nil, err
		}
		idx[k] = j
	}
	rows := make([][]Value, len(t.rows))
	for i, r := range t.rows {
		row := make([]Value, len(idx))
		for k, j := range idx {
			row[k] = r[j]
		}
		rows[i] = row
	}
	h := make([]string, len(names))
	copy(h, names)
	return &Table{header: h, rows: rows}, nil
}

// Filter keeps rows for which keep returns true, preserving order.
func (t *Table) Filter(keep func(row []Value) bool) *Table {
	var rows [][]Value
	for _, r := range t.rows {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	return New(t.header, rows)
}

// DropMissing removes rows whose named column is Missing.
func (t *Table) DropMissing(name string) (*Table, error) {
	j, err := t.mustIndex(name)
	if err != nil {
		return nil, err
	}
	return t.Filter(func(r []Value) bool { return !r[j].IsMissing() }), nil
}

// SortDesc orders rows by the named numeric column, largest first.
// The sort is stable; non-numeric cells sort after every number.
func (t *Table) SortDesc(name string) (*Table, error) {
	j, err := t.mustIndex(name)
	if err != nil {
		return nil, err
	}
	out := New(t.header, t.rows)
	sort.SliceStable(out.rows, func(a, b int) bool {
		x, okx := out.rows[a][j].Float()
		y, oky := out.rows[b][j].Float()
		switch {
		case okx && oky:
			return x > y
		default:
			return okx && !oky
		}
	})
	return out, nil
}

// Head returns the first n rows (fewer if the table is shorter).
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > len(t.rows) {
		n = len(t.rows)
	}
	return New(t.header, t.rows[:n])
}

// RenameColumns maps every header name through fn.
func (t *Table) RenameColumns(fn func(string) string) *Table {
	h := make([]string, len(t.header))
	for i, name := range t.header {
		h[i] = fn(name)
	}
	return &Table{header: h, rows: t.rows}
}
