package pipeline

import (
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
)

// Frame is an in-memory table: ordered column names plus one record per row.
type Frame struct {
	Columns []string
	Rows    []models.PatientRecord
}

func NewFrame(columns []string, rows []models.PatientRecord) *Frame {
	return &Frame{Columns: append([]string(nil), columns...), Rows: rows}
}

func (f *Frame) Len() int {
	return len(f.Rows)
}

func (f *Frame) HasColumn(name string) bool {
	for _, col := range f.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// Drop returns a frame without the named columns. Rows are copied so the
// receiver is left untouched.
func (f *Frame) Drop(names ...string) *Frame {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	columns := make([]string, 0, len(f.Columns))
	for _, col := range f.Columns {
		if _, ok := drop[col]; !ok {
			columns = append(columns, col)
		}
	}
	rows := make([]models.PatientRecord, len(f.Rows))
	for i, row := range f.Rows {
		out := row.Clone()
		for n := range drop {
			delete(out, n)
		}
		rows[i] = out
	}
	return &Frame{Columns: columns, Rows: rows}
}

// Subset returns the rows at the given positions, in that order.
func (f *Frame) Subset(positions []int) *Frame {
	rows := make([]models.PatientRecord, len(positions))
	for i, pos := range positions {
		rows[i] = f.Rows[pos]
	}
	return &Frame{Columns: append([]string(nil), f.Columns...), Rows: rows}
}

// Column returns the values of one column, nil where a row lacks it.
func (f *Frame) Column(name string) []interface{} {
	values := make([]interface{}, len(f.Rows))
	for i, row := range f.Rows {
		values[i] = row[name]
	}
	return values
}
