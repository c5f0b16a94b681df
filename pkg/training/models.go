package training

import (
	"encoding/json"
	"time"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunModel is the persisted audit row for one training run.
type RunModel struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	Status       string            `gorm:"column:status" json:"status"`
	Targets      datatypes.JSON    `gorm:"column:targets" json:"targets"`
	Results      datatypes.JSONMap `gorm:"column:results" json:"results"`
	TrainSamples int               `gorm:"column:train_samples" json:"train_samples"`
	TestSamples  int               `gorm:"column:test_samples" json:"test_samples"`
	Seed         int64             `gorm:"column:seed" json:"seed"`
	ModelDir     string            `gorm:"column:model_dir" json:"model_dir"`
	ErrorMessage string            `gorm:"column:error_message" json:"error_message"`
	CreatedAt    time.Time         `gorm:"column:created_at" json:"created_at"`
	CompletedAt  *time.Time        `gorm:"column:completed_at" json:"completed_at"`
}

func (RunModel) TableName() string {
	return "training_runs"
}

func newRunModel(runID uuid.UUID, status, modelDir string, manifest *models.RunManifest, runErr error) (*RunModel, error) {
	now := time.Now().UTC()
	run := &RunModel{
		ID:        runID,
		Status:    status,
		ModelDir:  modelDir,
		CreatedAt: now,
	}
	if status != StatusRunning {
		run.CompletedAt = &now
	}
	if runErr != nil {
		run.ErrorMessage = runErr.Error()
	}
	if manifest == nil {
		return run, nil
	}

	targets, err := json.Marshal(manifest.Targets)
	if err != nil {
		return nil, err
	}
	run.Targets = datatypes.JSON(targets)
	run.TrainSamples = manifest.TrainSamples
	run.TestSamples = manifest.TestSamples
	run.Seed = manifest.Seed

	results, err := toJSONMap(manifest.Results)
	if err != nil {
		return nil, err
	}
	run.Results = results
	return run, nil
}

func toJSONMap(v interface{}) (datatypes.JSONMap, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := datatypes.JSONMap{}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}
