package training

import (
	"context"
	"errors"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrRunNotFound = errors.New("training run not found")

// Repository keeps the training run history in Postgres.
type Repository struct {
	db       *gorm.DB
	modelDir string
}

func NewRepository(db *gorm.DB, modelDir string) *Repository {
	return &Repository{db: db, modelDir: modelDir}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&RunModel{})
}

func (r *Repository) Create(ctx context.Context, run *RunModel) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *Repository) Get(ctx context.Context, runID uuid.UUID) (*RunModel, error) {
	var run RunModel
	result := r.db.WithContext(ctx).First(&run, "id = ?", runID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	return &run, result.Error
}

func (r *Repository) List(ctx context.Context, limit int) ([]RunModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []RunModel
	result := r.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&runs)
	return runs, result.Error
}

// RecordRun implements RunRecorder. A running status inserts the row; later
// statuses update it in place, keeping its created_at, or insert it when the
// start was never recorded.
func (r *Repository) RecordRun(ctx context.Context, runID uuid.UUID, status string, manifest *models.RunManifest, runErr error) error {
	run, err := newRunModel(runID, status, r.modelDir, manifest, runErr)
	if err != nil {
		return err
	}
	if status == StatusRunning {
		return r.Create(ctx, run)
	}
	result := r.db.WithContext(ctx).
		Model(&RunModel{ID: runID}).
		Select("*").
		Omit("id", "created_at").
		Updates(run)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.Create(ctx, run)
	}
	return nil
}
