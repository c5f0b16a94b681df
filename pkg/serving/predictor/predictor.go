package predictor

import (
	"errors"
	"fmt"
	"math"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/logger"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/pipeline"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/storage"
)

var (
	ErrNonFinite      = errors.New("prediction is not a finite number")
	ErrSchemaMismatch = errors.New("pipeline schema differs from training schema")
)

// Predictor holds the immutable per-target pipelines of one training run.
// It is safe for concurrent use.
type Predictor struct {
	schema    *pipeline.Schema
	manifest  models.RunManifest
	targets   []string
	pipelines map[string]*pipeline.Pipeline
}

func New(schema *pipeline.Schema, manifest models.RunManifest, pipelines map[string]*pipeline.Pipeline) (*Predictor, error) {
	if schema == nil {
		return nil, fmt.Errorf("predictor: nil schema")
	}
	p := &Predictor{
		schema:    schema,
		manifest:  manifest,
		pipelines: make(map[string]*pipeline.Pipeline, len(models.Targets)),
	}
	for _, target := range models.Targets {
		pl, ok := pipelines[target]
		if !ok || pl == nil {
			return nil, fmt.Errorf("predictor: %w: no pipeline for %s", storage.ErrArtifactMissing, target)
		}
		if pl.Schema == nil || !sameColumns(pl.Schema.Columns, schema.Columns) {
			return nil, fmt.Errorf("predictor: %s: %w", target, ErrSchemaMismatch)
		}
		p.pipelines[target] = pl
		p.targets = append(p.targets, target)
	}
	return p, nil
}

// Load reads the schema, manifest and every target pipeline from store.
func Load(store *storage.ModelStore) (*Predictor, error) {
	schema, err := store.LoadSchema()
	if err != nil {
		return nil, err
	}
	manifest, err := store.LoadManifest()
	if err != nil {
		return nil, err
	}
	pipelines := make(map[string]*pipeline.Pipeline, len(models.Targets))
	for _, target := range models.Targets {
		pl, err := store.LoadPipeline(target)
		if err != nil {
			return nil, err
		}
		pipelines[target] = pl
	}

	p, err := New(schema, manifest, pipelines)
	if err != nil {
		return nil, err
	}
	logger.Log.WithFields(map[string]interface{}{
		"run_id":    manifest.RunID,
		"model_dir": store.Dir(),
		"columns":   len(schema.Columns),
	}).Info("Loaded model pipelines")
	return p, nil
}

// Predict derives features for rec and runs every target pipeline on it.
func (p *Predictor) Predict(rec models.PatientRecord) (models.PredictionResponse, error) {
	derived := pipeline.Derive(rec)
	resp := make(models.PredictionResponse, len(p.targets))
	for _, target := range p.targets {
		y, err := p.pipelines[target].Predict(derived)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return nil, fmt.Errorf("%s: %w", target, ErrNonFinite)
		}
		resp[target] = y
	}
	return resp, nil
}

func (p *Predictor) Targets() []string {
	return append([]string(nil), p.targets...)
}

func (p *Predictor) Schema() *pipeline.Schema {
	return p.schema
}

func (p *Predictor) Manifest() models.RunManifest {
	return p.manifest
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
