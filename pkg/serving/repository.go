package serving

import (
	"context"
	"fmt"
	"time"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PredictionLog is the persistence model for served predictions.
type PredictionLog struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	RunID     string            `gorm:"column:run_id;index" json:"run_id"`
	Request   datatypes.JSONMap `gorm:"column:request" json:"request"`
	Response  datatypes.JSONMap `gorm:"column:response" json:"response"`
	LatencyMs float64           `gorm:"column:latency_ms" json:"latency_ms"`
	CreatedAt time.Time         `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides gorm naming.
func (PredictionLog) TableName() string {
	return "prediction_logs"
}

// Repository handles prediction log queries.
type Repository struct {
	db    *gorm.DB
	runID string
}

func NewRepository(db *gorm.DB, runID string) *Repository {
	return &Repository{db: db, runID: runID}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&PredictionLog{})
}

func (r *Repository) RecordPrediction(ctx context.Context, rec models.PatientRecord, resp models.PredictionResponse, latency time.Duration) error {
	response := make(datatypes.JSONMap, len(resp))
	for target, value := range resp {
		response[target] = value
	}
	log := PredictionLog{
		ID:        uuid.New(),
		RunID:     r.runID,
		Request:   datatypes.JSONMap(rec),
		Response:  response,
		LatencyMs: float64(latency.Microseconds()) / 1000.0,
		CreatedAt: time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&log).Error
}

// Recent returns up to limit prediction logs of the loaded run, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]PredictionLog, error) {
	var logs []PredictionLog
	if err := r.db.WithContext(ctx).
		Where(&PredictionLog{RunID: r.runID}).
		Order("created_at DESC").
		Limit(max(limit, 1)).
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list predictions for run %s: %w", r.runID, err)
	}
	return logs, nil
}
