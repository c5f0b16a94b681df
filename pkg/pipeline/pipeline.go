package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/ml/ensemble"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/ml/linear"
)

var ErrEmptyModel = errors.New("pipeline has no fitted model")

// Model wraps exactly one fitted regressor so it can be stored as JSON.
type Model struct {
	Ensemble *ensemble.Model `json:"ensemble,omitempty"`
	Linear   *linear.Weights `json:"linear,omitempty"`
}

func (m Model) Predict(x []float64) (float64, error) {
	switch {
	case m.Ensemble != nil:
		return m.Ensemble.Predict(x)
	case m.Linear != nil:
		return m.Linear.Predict(x)
	default:
		return 0, ErrEmptyModel
	}
}

// Pipeline is the complete per-target inference unit: schema alignment,
// preprocessing and the fitted model. It is immutable once trained.
type Pipeline struct {
	Target    string             `json:"target"`
	Family    string             `json:"family"`
	Params    map[string]float64 `json:"params"`
	Schema    *Schema            `json:"schema"`
	Model     Model              `json:"model"`
	TrainedAt time.Time          `json:"trained_at"`
}

// Predict runs one already-derived record through alignment, preprocessing
// and the model.
func (p *Pipeline) Predict(rec models.PatientRecord) (float64, error) {
	if p.Schema == nil || p.Schema.Preprocessor == nil {
		return 0, fmt.Errorf("pipeline %s: missing schema", p.Target)
	}
	x, err := p.Schema.Encode(rec)
	if err != nil {
		return 0, fmt.Errorf("pipeline %s: %w", p.Target, err)
	}
	y, err := p.Model.Predict(x)
	if err != nil {
		return 0, fmt.Errorf("pipeline %s: %w", p.Target, err)
	}
	return y, nil
}
