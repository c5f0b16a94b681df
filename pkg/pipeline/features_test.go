package pipeline

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullRecord() models.PatientRecord {
	return models.PatientRecord{
		"Age":                      35,
		"Gender":                   "Male",
		"Height_cm":                180.0,
		"Weight_kg":                81.0,
		"Blood_Pressure_Systolic":  130.0,
		"Blood_Pressure_Diastolic": 85.0,
		"Blood_Sugar_Level":        130.0,
		"Cholesterol_Level":        200.0,
		"Daily_Steps":              8000.0,
		"Exercise_Frequency":       3.0,
		"Sleep_Hours":              6.0,
	}
}

func TestDeriveComputesAllFeatures(t *testing.T) {
	out := Derive(fullRecord())

	assert.InDelta(t, 25.0, out["BMI_calc"], 1e-9)
	assert.InDelta(t, 45.0, out["Pulse_Pressure"], 1e-9)
	assert.InDelta(t, (2*85.0+130.0)/3, out["MAP"], 1e-9)
	assert.Equal(t, 1.0, out["High_Sugar"])
	assert.Equal(t, 0.0, out["High_Cholesterol"])
	assert.Equal(t, 0.0, out["High_BP"])
	assert.Equal(t, 24000.0, out["Activity_Index"])
	assert.Equal(t, 1.0, out["Sleep_Deficit"])
	assert.Equal(t, "Male", out["Gender"])
}

func TestDeriveDoesNotMutateInput(t *testing.T) {
	rec := fullRecord()
	Derive(rec)

	_, ok := rec["BMI_calc"]
	assert.False(t, ok)
}

func TestDeriveHighBloodPressure(t *testing.T) {
	cases := []struct {
		sys, dia float64
		want     float64
	}{
		{145, 80, 1},
		{120, 95, 1},
		{140, 90, 1},
		{139, 89, 0},
	}
	for _, tc := range cases {
		out := Derive(models.PatientRecord{
			"Blood_Pressure_Systolic":  tc.sys,
			"Blood_Pressure_Diastolic": tc.dia,
		})
		assert.Equal(t, tc.want, out["High_BP"], "sys=%v dia=%v", tc.sys, tc.dia)
	}
}

func TestDeriveSleepDeficitNeverNegative(t *testing.T) {
	out := Derive(models.PatientRecord{"Sleep_Hours": 9.5})
	assert.Equal(t, 0.0, out["Sleep_Deficit"])
}

func TestDeriveOmitsFeaturesWithMissingSources(t *testing.T) {
	rec := fullRecord()
	delete(rec, "Weight_kg")
	rec["Blood_Pressure_Diastolic"] = nil

	out := Derive(rec)

	for _, name := range []string{"BMI_calc", "Pulse_Pressure", "MAP", "High_BP"} {
		_, ok := out[name]
		assert.False(t, ok, "%s should be omitted", name)
	}
	assert.Contains(t, out, "High_Sugar")
	assert.Contains(t, out, "Activity_Index")
	assert.Contains(t, out, "Sleep_Deficit")
}

func TestDeriveSkipsNonNumericAndZeroHeight(t *testing.T) {
	out := Derive(models.PatientRecord{
		"Height_cm":         0.0,
		"Weight_kg":         70.0,
		"Blood_Sugar_Level": "high",
		"Sleep_Hours":       " 5 ",
	})

	assert.NotContains(t, out, "BMI_calc")
	assert.NotContains(t, out, "High_Sugar")
	assert.Equal(t, 2.0, out["Sleep_Deficit"])
}

func TestDeriveAcceptsNumericStringsAndJSONNumbers(t *testing.T) {
	out := Derive(models.PatientRecord{
		"Height_cm": "170",
		"Weight_kg": json.Number("72.25"),
	})

	assert.InDelta(t, 72.25/(1.7*1.7), out["BMI_calc"], 1e-9)
}

func TestDeriveEmptyRecord(t *testing.T) {
	out := Derive(models.PatientRecord{})
	assert.Empty(t, out)
}

func TestDeriveAllAppendsProducedColumns(t *testing.T) {
	frame := NewFrame([]string{"Height_cm", "Weight_kg", "Sleep_Hours"}, []models.PatientRecord{
		{"Height_cm": "160", "Weight_kg": "64", "Sleep_Hours": ""},
		{"Height_cm": "", "Weight_kg": "80", "Sleep_Hours": "8"},
	})

	out := DeriveAll(frame)

	require.Equal(t, []string{"Height_cm", "Weight_kg", "Sleep_Hours", "BMI_calc", "Sleep_Deficit"}, out.Columns)
	assert.InDelta(t, 25.0, out.Rows[0]["BMI_calc"], 1e-9)
	assert.NotContains(t, out.Rows[1], "BMI_calc")
	assert.Equal(t, 0.0, out.Rows[1]["Sleep_Deficit"])
	assert.NotContains(t, frame.Rows[0], "BMI_calc")
}

func TestDeriveAllMatchesDerive(t *testing.T) {
	rec := fullRecord()
	frame := NewFrame([]string{"Age"}, []models.PatientRecord{rec})

	assert.Equal(t, Derive(rec), DeriveAll(frame).Rows[0])
}

func TestNumericValue(t *testing.T) {
	cases := []struct {
		in   interface{}
		want float64
		ok   bool
	}{
		{3.5, 3.5, true},
		{int64(4), 4, true},
		{" 12 ", 12, true},
		{true, 1, true},
		{json.Number("1e2"), 100, true},
		{"abc", 0, false},
		{math.NaN(), 0, false},
		{math.Inf(1), 0, false},
		{nil, 0, false},
		{[]int{1}, 0, false},
	}
	for _, tc := range cases {
		got, ok := NumericValue(tc.in)
		assert.Equal(t, tc.ok, ok, "%v", tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got)
		}
	}
}
