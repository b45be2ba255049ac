package domain

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// Table is a header-keyed view over tabular source rows. Columns are looked
// up by name so exports may reorder them freely.
type Table struct {
	columns map[string]int
	rows    [][]string
}

// NewTable builds a Table from a header row and data rows. Header names are
// trimmed and upper-cased; a leading UTF-8 BOM is dropped.
func NewTable(header []string, rows [][]string) Table {
	columns := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		h = strings.ToUpper(strings.TrimSpace(h))
		if _, dup := columns[h]; !dup {
			columns[h] = i
		}
	}
	return Table{columns: columns, rows: rows}
}

// ParseDelimited reads a delimited text export whose first row is the header.
// Rows may have fewer fields than the header.
func ParseDelimited(data []byte, delimiter rune) (Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("read delimited data: %w", err)
	}
	if len(records) == 0 {
		return Table{}, fmt.Errorf("read delimited data: missing header row")
	}
	return NewTable(records[0], records[1:]), nil
}

// Len returns the number of data rows.
func (t Table) Len() int { return len(t.rows) }

// HasColumn reports whether the header defines the named column.
func (t Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Value returns the trimmed cell for a row and column name, or "" when the
// column or cell is missing.
func (t Table) Value(row int, name string) string {
	i, ok := t.columns[name]
	if !ok || row < 0 || row >= len(t.rows) || i >= len(t.rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.rows[row][i])
}

// blank reports whether every cell of the row is empty.
func (t Table) blank(row int) bool {
	for _, cell := range t.rows[row] {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
