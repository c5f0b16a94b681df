package pipeline

import (
	"math"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
)

// Source fields read by the derivations.
const (
	FieldHeight       = "Height_cm"
	FieldWeight       = "Weight_kg"
	FieldSystolic     = "Blood_Pressure_Systolic"
	FieldDiastolic    = "Blood_Pressure_Diastolic"
	FieldBloodSugar   = "Blood_Sugar_Level"
	FieldCholesterol  = "Cholesterol_Level"
	FieldDailySteps   = "Daily_Steps"
	FieldExerciseFreq = "Exercise_Frequency"
	FieldSleepHours   = "Sleep_Hours"
	FieldPatientID    = "Patient_ID"
)

// Clinical cut-offs (mg/dL and mmHg).
const (
	recommendedSleep = 7.0
	highSugar        = 126.0
	highCholesterol  = 240.0
	highSystolic     = 140.0
	highDiastolic    = 90.0
)

// derivation computes one optional feature. ok is false when a source field is
// missing or not numeric, in which case the feature is left out of the record.
type derivation struct {
	name   string
	derive func(rec models.PatientRecord) (value float64, ok bool)
}

var derivations = []derivation{
	{name: "BMI_calc", derive: bmi},
	{name: "Pulse_Pressure", derive: pulsePressure},
	{name: "MAP", derive: meanArterialPressure},
	{name: "High_Sugar", derive: threshold(FieldBloodSugar, highSugar)},
	{name: "High_Cholesterol", derive: threshold(FieldCholesterol, highCholesterol)},
	{name: "High_BP", derive: highBloodPressure},
	{name: "Activity_Index", derive: activityIndex},
	{name: "Sleep_Deficit", derive: sleepDeficit},
}

// DerivedColumns lists every feature Derive may add, in derivation order.
func DerivedColumns() []string {
	names := make([]string, len(derivations))
	for i, d := range derivations {
		names[i] = d.name
	}
	return names
}

// Derive returns a copy of rec with every derivable health feature added.
// Each feature is computed independently; one failing never affects another.
func Derive(rec models.PatientRecord) models.PatientRecord {
	out := rec.Clone()
	for _, d := range derivations {
		if value, ok := d.derive(rec); ok && !math.IsNaN(value) && !math.IsInf(value, 0) {
			out[d.name] = value
		}
	}
	return out
}

// DeriveAll applies Derive to every row. Derived columns that at least one row
// produced are appended to the column list in derivation order.
func DeriveAll(frame *Frame) *Frame {
	rows := make([]models.PatientRecord, len(frame.Rows))
	produced := make(map[string]bool, len(derivations))
	for i, row := range frame.Rows {
		rows[i] = Derive(row)
		for _, d := range derivations {
			if _, ok := rows[i][d.name]; ok {
				produced[d.name] = true
			}
		}
	}
	columns := append([]string(nil), frame.Columns...)
	for _, d := range derivations {
		if produced[d.name] && !frame.HasColumn(d.name) {
			columns = append(columns, d.name)
		}
	}
	return &Frame{Columns: columns, Rows: rows}
}

func field(rec models.PatientRecord, name string) (float64, bool) {
	value, ok := rec[name]
	if !ok || IsMissing(value) {
		return 0, false
	}
	return NumericValue(value)
}

func fields(rec models.PatientRecord, a, b string) (float64, float64, bool) {
	x, ok := field(rec, a)
	if !ok {
		return 0, 0, false
	}
	y, ok := field(rec, b)
	if !ok {
		return 0, 0, false
	}
	return x, y, true
}

func bmi(rec models.PatientRecord) (float64, bool) {
	height, weight, ok := fields(rec, FieldHeight, FieldWeight)
	if !ok || height <= 0 {
		return 0, false
	}
	meters := height / 100
	return weight / (meters * meters), true
}

func pulsePressure(rec models.PatientRecord) (float64, bool) {
	sys, dia, ok := fields(rec, FieldSystolic, FieldDiastolic)
	if !ok {
		return 0, false
	}
	return sys - dia, true
}

func meanArterialPressure(rec models.PatientRecord) (float64, bool) {
	sys, dia, ok := fields(rec, FieldSystolic, FieldDiastolic)
	if !ok {
		return 0, false
	}
	return (2*dia + sys) / 3, true
}

func highBloodPressure(rec models.PatientRecord) (float64, bool) {
	sys, dia, ok := fields(rec, FieldSystolic, FieldDiastolic)
	if !ok {
		return 0, false
	}
	return indicator(sys >= highSystolic || dia >= highDiastolic), true
}

func activityIndex(rec models.PatientRecord) (float64, bool) {
	steps, freq, ok := fields(rec, FieldDailySteps, FieldExerciseFreq)
	if !ok {
		return 0, false
	}
	return steps * freq, true
}

func sleepDeficit(rec models.PatientRecord) (float64, bool) {
	hours, ok := field(rec, FieldSleepHours)
	if !ok {
		return 0, false
	}
	return math.Max(0, recommendedSleep-hours), true
}

func threshold(name string, limit float64) func(models.PatientRecord) (float64, bool) {
	return func(rec models.PatientRecord) (float64, bool) {
		value, ok := field(rec, name)
		if !ok {
			return 0, false
		}
		return indicator(value >= limit), true
	}
}

func indicator(cond bool) float64 {
	if cond {
		return 1
	}
	return 0
}
