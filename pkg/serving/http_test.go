package serving

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/ml/linear"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/pipeline"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/serving/middleware"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/serving/predictor"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPredictor(t *testing.T) *predictor.Predictor {
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

	width := schema.Width()
	pipelines := make(map[string]*pipeline.Pipeline, len(models.Targets))
	for i, target := range models.Targets {
		w := &linear.Weights{
			Bias:         float64(1000 * (i + 1)),
			Coefficients: make([]float64, width),
			Means:        make([]float64, width),
			Scales:       make([]float64, width),
		}
		for j, name := range schema.Preprocessor.FeatureNames {
			w.Scales[j] = 1
			if name == "Age" {
				w.Coefficients[j] = 1
			}
		}
		pipelines[target] = &pipeline.Pipeline{Target: target, Family: "Ridge", Schema: schema, Model: pipeline.Model{Linear: w}}
	}
	manifest := models.RunManifest{
		RunID:   "run-1",
		Targets: models.Targets,
		Results: map[string]models.TargetResult{"Recommended_Calories": {BestModel: "Ridge", BestMAE: 12.5}},
	}
	p, err := predictor.New(schema, manifest, pipelines)
	require.NoError(t, err)
	return p
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]models.PredictionResponse
	gets    int
}

func (c *memoryCache) Key(rec models.PatientRecord) (string, error) {
	payload, err := json.Marshal(rec)
	return string(payload), err
}

func (c *memoryCache) Get(_ context.Context, key string) (models.PredictionResponse, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	resp, ok := c.entries[key]
	return resp, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key string, resp models.PredictionResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = resp
	return nil
}

type failingRecorder struct {
	calls int
}

func (r *failingRecorder) RecordPrediction(context.Context, models.PatientRecord, models.PredictionResponse, time.Duration) error {
	r.calls++
	return errors.New("database unavailable")
}

func newRouter(h *HTTPHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Instrument)
	h.Register(router)
	return router
}

func post(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestPredictEndpoint(t *testing.T) {
	router := newRouter(NewHTTPHandler(testPredictor(t), 1<<20, t.TempDir()))

	rec := post(t, router, `{"Age": 40, "Gender": "Male", "Height_cm": 175, "Weight_kg": 72, "Extra": [1, 2]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp map[string]float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 4)
	for i, target := range models.Targets {
		v, ok := resp[target]
		require.True(t, ok, target)
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		assert.InDelta(t, float64(1000*(i+1))+40, v, 1e-9)
	}
}

func TestPredictEndpointErrors(t *testing.T) {
	router := newRouter(NewHTTPHandler(testPredictor(t), 64, t.TempDir()))

	cases := map[string]string{
		"malformed json":  `{"Age": `,
		"not an object":   `[1, 2, 3]`,
		"null":            `null`,
		"non-numeric age": `{"Age": "forty"}`,
		"too large":       `{"Gender": "` + strings.Repeat("x", 200) + `"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := post(t, router, body)
			assert.Equal(t, http.StatusInternalServerError, rec.Code)

			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}

	// The handler keeps serving after failures.
	rec := post(t, router, `{"Age": 20}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPredictUsesCacheAndToleratesRecorderFailure(t *testing.T) {
	cache := &memoryCache{entries: map[string]models.PredictionResponse{}}
	recorder := &failingRecorder{}
	router := newRouter(NewHTTPHandler(testPredictor(t), 0, t.TempDir()).WithCache(cache).WithRecorder(recorder))

	first := post(t, router, `{"Age": 33}`)
	require.Equal(t, http.StatusOK, first.Code)
	second := post(t, router, `{"Age": 33}`)
	require.Equal(t, http.StatusOK, second.Code)

	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 2, cache.gets)
	assert.Len(t, cache.entries, 1)
	assert.Equal(t, 1, recorder.calls)
}

func TestIndexHealthAndModels(t *testing.T) {
	static := t.TempDir()
	router := newRouter(NewHTTPHandler(testPredictor(t), 0, static))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<h1>Diet</h1>"), 0o644))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>Diet</h1>")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/models", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var manifest models.RunManifest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &manifest))
	assert.Equal(t, "run-1", manifest.RunID)
	assert.Equal(t, "Ridge", manifest.Results["Recommended_Calories"].BestModel)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/schema", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var schema pipeline.Schema
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &schema))
	assert.Contains(t, schema.Columns, "BMI_calc")
	require.NotNil(t, schema.Preprocessor)
	assert.Equal(t, []string{"Gender"}, schema.Preprocessor.Categorical)
}

func TestPredictRejectsWrongMethod(t *testing.T) {
	router := newRouter(NewHTTPHandler(testPredictor(t), 0, t.TempDir()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/predict", bytes.NewReader(nil)))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
