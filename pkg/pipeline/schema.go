package pipeline

import (
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
)

// Row is a record aligned to a fixed column order.
type Row struct {
	Columns []string
	Values  []interface{}
}

// Align reshapes rec to exactly the expected columns, in order. Expected
// columns the record lacks (or holds a missing value for) become NaN; columns
// outside the expected list are dropped. Align is idempotent.
func Align(expected []string, rec models.PatientRecord) Row {
	values := make([]interface{}, len(expected))
	for i, col := range expected {
		value, ok := rec[col]
		if !ok || IsMissing(value) {
			values[i] = math.NaN()
			continue
		}
		values[i] = value
	}
	return Row{Columns: append([]string(nil), expected...), Values: values}
}

// Record converts the row back into a record keyed by column.
func (r Row) Record() models.PatientRecord {
	rec := make(models.PatientRecord, len(r.Columns))
	for i, col := range r.Columns {
		rec[col] = r.Values[i]
	}
	return rec
}

// Equal compares two rows column by column. NaN equals NaN.
func (r Row) Equal(other Row) bool {
	if !slices.Equal(r.Columns, other.Columns) || len(r.Values) != len(other.Values) {
		return false
	}
	for i := range r.Values {
		a, b := r.Values[i], other.Values[i]
		if IsMissing(a) && IsMissing(b) {
			continue
		}
		if !reflect.DeepEqual(a, b) {
			return false
		}
	}
	return true
}

// AlignEncoded maps named encoded features onto the expected encoded columns.
// Absent indicator columns are zero; unexpected names are dropped.
func AlignEncoded(expected []string, encoded map[string]float64) []float64 {
	out := make([]float64, len(expected))
	for i, name := range expected {
		out[i] = encoded[name]
	}
	return out
}

// Schema is the training-time input contract: the expected raw columns and
// the preprocessor fitted on them.
type Schema struct {
	Columns      []string      `json:"X_columns"`
	Preprocessor *Preprocessor `json:"preprocessor"`
}

// BuildSchema fits a preprocessor on every column of the training frame.
func BuildSchema(frame *Frame) (*Schema, error) {
	if frame.Len() == 0 {
		return nil, fmt.Errorf("cannot build schema from an empty frame")
	}
	pre := BuildPreprocessor(frame)
	return &Schema{Columns: append([]string(nil), frame.Columns...), Preprocessor: pre}, nil
}

// Encode aligns rec to the schema and runs the preprocessor over it.
func (s *Schema) Encode(rec models.PatientRecord) ([]float64, error) {
	return s.Preprocessor.Transform(Align(s.Columns, rec))
}

// Width is the number of encoded features the preprocessor emits.
func (s *Schema) Width() int {
	return len(s.Preprocessor.FeatureNames)
}
