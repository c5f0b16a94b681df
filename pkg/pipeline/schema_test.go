package pipeline

import (
	"math"
	"testing"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var expected = []string{"Age", "Gender", "BMI_calc"}

func TestAlignFillsMissingAndDropsExtras(t *testing.T) {
	row := Align(expected, models.PatientRecord{"Gender": "Female", "Unrelated": 99})

	require.Equal(t, expected, row.Columns)
	require.Len(t, row.Values, 3)
	assert.True(t, math.IsNaN(row.Values[0].(float64)))
	assert.Equal(t, "Female", row.Values[1])
	assert.True(t, math.IsNaN(row.Values[2].(float64)))
	assert.NotContains(t, row.Record(), "Unrelated")
}

func TestAlignIsIdempotent(t *testing.T) {
	recs := []models.PatientRecord{
		{},
		{"Age": 40, "Gender": "Male", "BMI_calc": 22.5, "Extra": "x"},
		{"Age": nil, "Gender": ""},
	}
	for _, rec := range recs {
		once := Align(expected, rec)
		twice := Align(expected, once.Record())
		assert.True(t, once.Equal(twice), "align not idempotent for %v", rec)
	}
}

func TestAlignMissingValuesBecomeNaN(t *testing.T) {
	row := Align(expected, models.PatientRecord{"Age": "", "Gender": nil})

	assert.True(t, IsMissing(row.Values[0]))
	assert.True(t, IsMissing(row.Values[1]))
}

func TestRowEqual(t *testing.T) {
	a := Row{Columns: []string{"x", "y"}, Values: []interface{}{math.NaN(), 1.0}}
	b := Row{Columns: []string{"x", "y"}, Values: []interface{}{math.NaN(), 1.0}}
	c := Row{Columns: []string{"y", "x"}, Values: []interface{}{math.NaN(), 1.0}}
	d := Row{Columns: []string{"x", "y"}, Values: []interface{}{math.NaN(), 2.0}}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
}

func TestRowEqualWithCompositeValues(t *testing.T) {
	a := Row{Columns: []string{"Allergies"}, Values: []interface{}{[]interface{}{"nuts"}}}
	b := Row{Columns: []string{"Allergies"}, Values: []interface{}{[]interface{}{"nuts"}}}
	c := Row{Columns: []string{"Allergies"}, Values: []interface{}{map[string]interface{}{"kind": "nuts"}}}

	assert.NotPanics(t, func() { a.Equal(c) })
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestAlignEncodedZeroFills(t *testing.T) {
	names := []string{"Age", "Gender_Female", "Gender_Male", "Gender__unknown"}

	got := AlignEncoded(names, map[string]float64{"Age": 30, "Gender_Male": 1, "Stray": 5})

	assert.Equal(t, []float64{30, 0, 1, 0}, got)
}

func TestBuildSchemaRejectsEmptyFrame(t *testing.T) {
	_, err := BuildSchema(NewFrame([]string{"Age"}, nil))
	assert.Error(t, err)
}

func TestSchemaEncodeIgnoresExtraColumns(t *testing.T) {
	frame := NewFrame([]string{"Age", "Gender"}, []models.PatientRecord{
		{"Age": "30", "Gender": "Male"},
		{"Age": "50", "Gender": "Female"},
	})
	schema, err := BuildSchema(frame)
	require.NoError(t, err)

	a, err := schema.Encode(models.PatientRecord{"Age": 40, "Gender": "Male"})
	require.NoError(t, err)
	b, err := schema.Encode(models.PatientRecord{"Age": 40, "Gender": "Male", "Shoe_Size": 44})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, schema.Width(), len(a))
}
