// Package export renders standings and results as CSV and JSON downloads.
package export

import (
	"slices"
	"strings"
)

// Field is one named cell of a row.
type Field struct {
	Key   string
	Value string
}

// Row is an ordered record.
type Row []Field

// Get returns the value stored under key.
func (r Row) Get(key string) (string, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Columns returns the union of row keys in first-seen order.
func Columns(rows []Row) []string {
	var cols []string
	for _, row := range rows {
		for _, f := range row {
			if !slices.Contains(cols, f.Key) {
				cols = append(cols, f.Key)
			}
		}
	}
	return cols
}

// CSV renders rows with a plain header line. Every value is double-quoted with
// embedded quotes doubled; missing cells render as "". Lines are joined with
// a bare newline.
func CSV(rows []Row) string {
	cols := Columns(rows)
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, strings.Join(cols, ","))
	cells := make([]string, len(cols))
	for _, row := range rows {
		for i, col := range cols {
			v, _ := row.Get(col)
			cells[i] = `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
		}
		lines = append(lines, strings.Join(cells, ","))
	}
	return strings.Join(lines, "\n")
}
