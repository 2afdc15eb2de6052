package table

import (
	"strings"
)

// Table is an in-memory sheet: ordered column names and rows aligned to them.
// Readers, the header normalizer and the row coercer all work against it so that
// no spreadsheet library type leaks past the parser.
type Table struct {
	columns []string
	rows    [][]Cell
}

func New(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{columns: cols}
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

func (t *Table) Len() int {
	return len(t.rows)
}

// Append adds a row. Short rows are padded with Empty cells, long rows truncated.
func (t *Table) Append(cells ...Cell) {
	row := make([]Cell, len(t.columns))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Index returns the position of the first column with exactly this name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether a column with exactly this name exists.
func (t *Table) Has(name string) bool {
	return t.Index(name) >= 0
}

// Get returns the cell of row i in the named column; Empty when the column is absent.
func (t *Table) Get(i int, column string) Cell {
	idx := t.Index(column)
	if idx < 0 {
		return EmptyCell()
	}
	return t.rows[i][idx]
}

// Set overwrites the cell of row i in the named column. Unknown columns are ignored.
func (t *Table) Set(i int, column string, c Cell) {
	idx := t.Index(column)
	if idx < 0 {
		return
	}
	t.rows[i][idx] = c
}

// Row returns a copy of row i keyed by column name. When names repeat, the
// left-most column wins.
func (t *Table) Row(i int) map[string]Cell {
	out := make(map[string]Cell, len(t.columns))
	for j, c := range t.columns {
		if _, seen := out[c]; seen {
			continue
		}
		out[c] = t.rows[i][j]
	}
	return out
}

// RenameAt renames the column at position idx.
func (t *Table) RenameAt(idx int, name string) {
	if idx < 0 || idx >= len(t.columns) {
		return
	}
	t.columns[idx] = name
}

// AddColumn appends a column holding Empty in every row.
func (t *Table) AddColumn(name string) {
	t.columns = append(t.columns, name)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], EmptyCell())
	}
}

// Project returns a new table holding exactly the named columns in the given order.
// Missing columns come out Empty.
func (t *Table) Project(columns []string) *Table {
	out := New(columns...)
	idx := make([]int, len(columns))
	for j, c := range columns {
		idx[j] = t.Index(c)
	}
	out.rows = make([][]Cell, 0, len(t.rows))
	for _, row := range t.rows {
		projected := make([]Cell, len(columns))
		for j, src := range idx {
			if src >= 0 {
				projected[j] = row[src]
			}
		}
		out.rows = append(out.rows, projected)
	}
	return out
}

// Filter keeps the rows for which keep returns true.
func (t *Table) Filter(keep func(i int) bool) {
	kept := make([][]Cell, 0, len(t.rows))
	for i, row := range t.rows {
		if keep(i) {
			kept = append(kept, row)
		}
	}
	t.rows = kept
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := New(t.columns...)
	out.rows = make([][]Cell, len(t.rows))
	for i, row := range t.rows {
		out.rows[i] = make([]Cell, len(row))
		copy(out.rows[i], row)
	}
	return out
}

// Equal reports whether both tables hold the same columns and cells.
func (t *Table) Equal(o *Table) bool {
	if len(t.columns) != len(o.columns) || len(t.rows) != len(o.rows) {
		return false
	}
	for i := range t.columns {
		if t.columns[i] != o.columns[i] {
			return false
		}
	}
	for i := range t.rows {
		for j := range t.rows[i] {
			if !t.rows[i][j].Equal(o.rows[i][j]) {
				return false
			}
		}
	}
	return true
}

// NormalizeHeader is the comparison form of a header: trimmed and lower-cased.
func NormalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
