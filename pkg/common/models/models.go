package models

import (
	"time"
)

// Nutrition targets predicted for every patient, in output order.
var Targets = []string{
	"Recommended_Calories",
	"Recommended_Protein",
	"Recommended_Carbs",
	"Recommended_Fats",
}

// PatientRecord maps attribute names to scalar values (numbers, strings or bools).
// Absent keys and nil values are treated as missing.
type PatientRecord map[string]interface{}

// Clone returns a shallow copy of the record.
func (r PatientRecord) Clone() PatientRecord {
	out := make(PatientRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // training.completed, training.failed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// Model Training
type CandidateScore struct {
	Model  string             `json:"model"`
	CVMAE  float64            `json:"cv_mae"`
	MAE    float64            `json:"mae"`
	RMSE   float64            `json:"rmse"`
	R2     float64            `json:"r2"`
	Params map[string]float64 `json:"params"`
}

type TargetResult struct {
	BestModel  string             `json:"best_model"`
	BestMAE    float64            `json:"best_mae"`
	RMSE       float64            `json:"rmse"`
	R2         float64            `json:"r2"`
	BestParams map[string]float64 `json:"best_params"`
	Candidates []CandidateScore   `json:"candidates,omitempty"`
}

type RunManifest struct {
	RunID        string                  `json:"run_id"`
	Timestamp    string                  `json:"timestamp"`
	Targets      []string                `json:"targets"`
	Results      map[string]TargetResult `json:"results"`
	TrainSamples int                     `json:"train_samples"`
	TestSamples  int                     `json:"test_samples"`
	Seed         int64                   `json:"seed"`
}

// Model Serving
type PredictionResponse map[string]float64

type ErrorResponse struct {
	Error string `json:"error"`
}
