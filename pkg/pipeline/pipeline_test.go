package pipeline

import (
	"errors"
	"testing"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/ml/linear"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearPipeline(t *testing.T) *Pipeline {
	t.Helper()
	frame := NewFrame([]string{"Age", "Gender"}, []models.PatientRecord{
		{"Age": "20", "Gender": "Male"},
		{"Age": "40", "Gender": "Female"},
	})
	schema, err := BuildSchema(frame)
	require.NoError(t, err)

	// Age, Gender_Female, Gender_Male, Gender__unknown
	weights := &linear.Weights{
		Bias:         100,
		Coefficients: []float64{2, 10, 20, 30},
		Means:        []float64{0, 0, 0, 0},
		Scales:       []float64{1, 1, 1, 1},
	}
	return &Pipeline{Target: "Recommended_Calories", Family: "Ridge", Schema: schema, Model: Model{Linear: weights}}
}

func TestPipelinePredict(t *testing.T) {
	p := linearPipeline(t)

	got, err := p.Predict(models.PatientRecord{"Age": 10, "Gender": "Female", "Noise": true})
	require.NoError(t, err)
	assert.InDelta(t, 100+20+10, got, 1e-12)

	got, err = p.Predict(models.PatientRecord{})
	require.NoError(t, err)
	// Median age 30 and modal gender Female.
	assert.InDelta(t, 100+60+10, got, 1e-12)

	got, err = p.Predict(models.PatientRecord{"Age": 0, "Gender": "Unseen"})
	require.NoError(t, err)
	assert.InDelta(t, 130, got, 1e-12)
}

func TestPipelinePredictWrapsErrors(t *testing.T) {
	p := linearPipeline(t)

	_, err := p.Predict(models.PatientRecord{"Age": "old"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotNumeric))
	assert.Contains(t, err.Error(), "Recommended_Calories")

	p.Model = Model{}
	_, err = p.Predict(models.PatientRecord{})
	assert.ErrorIs(t, err, ErrEmptyModel)
}
