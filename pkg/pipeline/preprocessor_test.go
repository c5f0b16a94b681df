package pipeline

import (
	"errors"
	"testing"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainingFrame() *Frame {
	return NewFrame([]string{"Age", "Gender", "Diet"}, []models.PatientRecord{
		{"Age": "20", "Gender": "Male", "Diet": "Vegan"},
		{"Age": "40", "Gender": "Female", "Diet": ""},
		{"Age": "", "Gender": "Female", "Diet": "Omnivore"},
		{"Age": "30", "Gender": "Male", "Diet": "Vegan"},
		{"Age": "35", "Gender": "Other", "Diet": "Omnivore"},
	})
}

func TestBuildPreprocessorInfersKindsAndStats(t *testing.T) {
	p := BuildPreprocessor(trainingFrame())

	assert.Equal(t, []string{"Age"}, p.Numeric)
	assert.Equal(t, []string{"Gender", "Diet"}, p.Categorical)
	assert.Equal(t, 32.5, p.Medians["Age"])
	// Female and Male tie; the smaller label wins.
	assert.Equal(t, "Female", p.Modes["Gender"])
	assert.Equal(t, "Omnivore", p.Modes["Diet"])
	assert.Equal(t, []string{"Female", "Male", "Other"}, p.Categories["Gender"])
	assert.Equal(t, []string{
		"Age",
		"Gender_Female", "Gender_Male", "Gender_Other", "Gender__unknown",
		"Diet_Omnivore", "Diet_Vegan", "Diet__unknown",
	}, p.FeatureNames)
}

func TestTransformImputesAndEncodes(t *testing.T) {
	p := BuildPreprocessor(trainingFrame())
	row := Align([]string{"Age", "Gender", "Diet"}, models.PatientRecord{"Gender": "Male"})

	got, err := p.Transform(row)
	require.NoError(t, err)

	assert.Equal(t, []float64{32.5, 0, 1, 0, 0, 1, 0, 0}, got)
}

func TestTransformUnknownCategoryUsesBucket(t *testing.T) {
	p := BuildPreprocessor(trainingFrame())
	row := Align([]string{"Age", "Gender", "Diet"}, models.PatientRecord{"Age": 50, "Gender": "Nonbinary", "Diet": "Vegan"})

	got, err := p.Transform(row)
	require.NoError(t, err)

	assert.Equal(t, []float64{50, 0, 0, 0, 1, 0, 1, 0}, got)
}

func TestTransformRejectsNonNumericInNumericColumn(t *testing.T) {
	p := BuildPreprocessor(trainingFrame())
	row := Align([]string{"Age", "Gender", "Diet"}, models.PatientRecord{"Age": "forty"})

	_, err := p.Transform(row)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotNumeric))
	assert.Contains(t, err.Error(), "Age")
}

func TestPreprocessorDefault(t *testing.T) {
	p := BuildPreprocessor(trainingFrame())

	age, ok := p.Default("Age")
	require.True(t, ok)
	assert.Equal(t, 32.5, age)

	gender, ok := p.Default("Gender")
	require.True(t, ok)
	assert.Equal(t, "Female", gender)

	_, ok = p.Default("Unknown")
	assert.False(t, ok)
}

func TestEntirelyMissingColumns(t *testing.T) {
	frame := NewFrame([]string{"Empty"}, []models.PatientRecord{{"Empty": ""}, {}})

	p := BuildPreprocessor(frame)

	assert.Equal(t, []string{"Empty"}, p.Numeric)
	assert.Zero(t, p.Medians["Empty"])
}
