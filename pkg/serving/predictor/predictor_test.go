package predictor

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/ml/linear"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/pipeline"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bmiSchema(t *testing.T) *pipeline.Schema {
	t.Helper()
	frame := pipeline.DeriveAll(pipeline.NewFrame(
		[]string{"Age", "Gender", "Height_cm", "Weight_kg"},
		[]models.PatientRecord{
			{"Age": "30", "Gender": "Male", "Height_cm": "180", "Weight_kg": "81"},
			{"Age": "50", "Gender": "Female", "Height_cm": "160", "Weight_kg": "64"},
		},
	))
	schema, err := pipeline.BuildSchema(frame)
	require.NoError(t, err)
	require.Contains(t, schema.Columns, "BMI_calc")
	return schema
}

// bmiPipelines predict bias + BMI_calc for each target, with biases 100, 200, ...
func bmiPipelines(t *testing.T, schema *pipeline.Schema) map[string]*pipeline.Pipeline {
	t.Helper()
	width := schema.Width()
	out := make(map[string]*pipeline.Pipeline, len(models.Targets))
	for i, target := range models.Targets {
		w := &linear.Weights{
			Bias:         float64(100 * (i + 1)),
			Coefficients: make([]float64, width),
			Means:        make([]float64, width),
			Scales:       make([]float64, width),
		}
		for j, name := range schema.Preprocessor.FeatureNames {
			w.Scales[j] = 1
			if name == "BMI_calc" {
				w.Coefficients[j] = 1
			}
		}
		out[target] = &pipeline.Pipeline{Target: target, Family: "Ridge", Schema: schema, Model: pipeline.Model{Linear: w}}
	}
	return out
}

func TestPredictUsesDerivedFeatures(t *testing.T) {
	schema := bmiSchema(t)
	p, err := New(schema, models.RunManifest{RunID: "run-1"}, bmiPipelines(t, schema))
	require.NoError(t, err)

	resp, err := p.Predict(models.PatientRecord{"Height_cm": 180, "Weight_kg": 81, "Unused": "x"})
	require.NoError(t, err)
	require.Len(t, resp, 4)
	for i, target := range models.Targets {
		assert.InDelta(t, float64(100*(i+1))+25, resp[target], 1e-9, target)
	}
	assert.Equal(t, models.Targets, p.Targets())
	assert.Equal(t, "run-1", p.Manifest().RunID)
}

func TestPredictMissingInputsUseImputation(t *testing.T) {
	schema := bmiSchema(t)
	p, err := New(schema, models.RunManifest{}, bmiPipelines(t, schema))
	require.NoError(t, err)

	resp, err := p.Predict(models.PatientRecord{})
	require.NoError(t, err)
	median := schema.Preprocessor.Medians["BMI_calc"]
	assert.InDelta(t, 100+median, resp["Recommended_Calories"], 1e-9)
}

func TestPredictErrors(t *testing.T) {
	schema := bmiSchema(t)
	pipelines := bmiPipelines(t, schema)
	p, err := New(schema, models.RunManifest{}, pipelines)
	require.NoError(t, err)

	_, err = p.Predict(models.PatientRecord{"Age": "thirty"})
	assert.ErrorIs(t, err, pipeline.ErrNotNumeric)

	pipelines["Recommended_Fats"].Model.Linear.Bias = math.Inf(1)
	_, err = p.Predict(models.PatientRecord{})
	assert.ErrorIs(t, err, ErrNonFinite)
	assert.Contains(t, err.Error(), "Recommended_Fats")
}

func TestNewValidatesPipelines(t *testing.T) {
	schema := bmiSchema(t)

	pipelines := bmiPipelines(t, schema)
	delete(pipelines, "Recommended_Carbs")
	_, err := New(schema, models.RunManifest{}, pipelines)
	assert.ErrorIs(t, err, storage.ErrArtifactMissing)

	pipelines = bmiPipelines(t, schema)
	other := *schema
	other.Columns = []string{"Age"}
	pipelines["Recommended_Protein"].Schema = &other
	_, err = New(schema, models.RunManifest{}, pipelines)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestLoadFromStore(t *testing.T) {
	store := storage.NewModelStore(filepath.Join(t.TempDir(), "diet_model"))
	require.NoError(t, store.Init())

	_, err := Load(store)
	assert.ErrorIs(t, err, storage.ErrArtifactMissing)

	schema := bmiSchema(t)
	for _, p := range bmiPipelines(t, schema) {
		require.NoError(t, store.SavePipeline(p))
	}
	require.NoError(t, store.SaveSchema(schema))
	require.NoError(t, store.SaveManifest(models.RunManifest{RunID: "run-7", Targets: models.Targets}))

	p, err := Load(store)
	require.NoError(t, err)
	resp, err := p.Predict(models.PatientRecord{"Height_cm": "180", "Weight_kg": "81"})
	require.NoError(t, err)
	assert.InDelta(t, 225, resp["Recommended_Protein"], 1e-9)
	assert.Equal(t, "run-7", p.Manifest().RunID)
}
