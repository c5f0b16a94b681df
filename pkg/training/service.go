package training

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/kafka"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/logger"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/ml/metrics"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/ml/search"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/ml/tree"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/pipeline"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/storage"
	"github.com/google/uuid"
)

var ErrMissingTargets = errors.New("missing targets in CSV")

const eventSource = "training-service"

type Options struct {
	Seed       int64
	TestSize   float64
	Iterations int
	Folds      int
	Workers    int
	MaxBins    int
}

// RunRecorder stores the outcome of a run outside the model directory.
type RunRecorder interface {
	RecordRun(ctx context.Context, runID uuid.UUID, status string, manifest *models.RunManifest, runErr error) error
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error
}

type Service struct {
	store     *storage.ModelStore
	space     SearchSpace
	opts      Options
	recorder  RunRecorder
	events    EventPublisher
	workerSem chan struct{}
}

func NewService(store *storage.ModelStore, space SearchSpace, opts Options) (*Service, error) {
	if err := space.Validate(); err != nil {
		return nil, err
	}
	if opts.TestSize <= 0 || opts.TestSize >= 1 {
		opts.TestSize = 0.2
	}
	if opts.Iterations <= 0 {
		opts.Iterations = 15
	}
	if opts.Folds < 2 {
		opts.Folds = 3
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxBins <= 0 {
		opts.MaxBins = tree.DefaultMaxBins
	}
	if err := store.Init(); err != nil {
		return nil, err
	}
	return &Service{
		store:     store,
		space:     space,
		opts:      opts,
		workerSem: make(chan struct{}, 1),
	}, nil
}

func (s *Service) WithRecorder(recorder RunRecorder) *Service {
	s.recorder = recorder
	return s
}

func (s *Service) WithEvents(events EventPublisher) *Service {
	s.events = events
	return s
}

// trainingSet is the encoded training split plus everything needed to score
// candidates on the held-out split.
type trainingSet struct {
	schema  *pipeline.Schema
	dataset *tree.Dataset
	rows    []int
	labels  map[string][]float64
	test    *pipeline.Frame
	testY   map[string][]float64
}

// Run trains one pipeline per target on frame and writes the model store.
// Only one run executes at a time.
func (s *Service) Run(ctx context.Context, frame *pipeline.Frame) (*models.RunManifest, error) {
	s.workerSem <- struct{}{}
	defer func() { <-s.workerSem }()

	runID := uuid.New()
	start := time.Now().UTC()
	log := logger.WithField("run_id", runID.String())
	log.WithFields(map[string]interface{}{
		"rows":    frame.Len(),
		"columns": len(frame.Columns),
	}).Info("Starting training run")
	s.record(ctx, runID, StatusRunning, nil, nil)

	manifest, err := s.run(ctx, runID, start, frame)
	if err != nil {
		s.fail(ctx, runID, err)
		return nil, err
	}

	s.record(ctx, runID, StatusCompleted, manifest, nil)
	s.publish(ctx, kafka.EventTrainingCompleted, map[string]interface{}{
		"run_id":    manifest.RunID,
		"timestamp": manifest.Timestamp,
		"results":   manifest.Results,
		"model_dir": s.store.Dir(),
	})
	log.WithField("duration_seconds", time.Since(start).Seconds()).Info("Training run completed")
	return manifest, nil
}

func (s *Service) run(ctx context.Context, runID uuid.UUID, start time.Time, frame *pipeline.Frame) (*models.RunManifest, error) {
	set, err := s.prepare(frame)
	if err != nil {
		return nil, err
	}

	manifest := &models.RunManifest{
		RunID:        runID.String(),
		Timestamp:    start.Format(time.RFC3339),
		Targets:      append([]string(nil), models.Targets...),
		Results:      make(map[string]models.TargetResult, len(models.Targets)),
		TrainSamples: len(set.rows),
		TestSamples:  set.test.Len(),
		Seed:         s.opts.Seed,
	}
	// Nothing is written until every target has a model, so a failed run
	// leaves the previous store intact.
	chosen := make([]*pipeline.Pipeline, 0, len(models.Targets))
	for _, target := range models.Targets {
		best, result, err := s.trainTarget(ctx, set, target, start)
		if err != nil {
			return nil, err
		}
		chosen = append(chosen, best)
		manifest.Results[target] = result
	}
	if err := s.persist(set.schema, chosen, *manifest); err != nil {
		return nil, err
	}
	return manifest, nil
}

// persist writes the pipelines, then the schema, then the manifest and log.
func (s *Service) persist(schema *pipeline.Schema, chosen []*pipeline.Pipeline, manifest models.RunManifest) error {
	for _, p := range chosen {
		if err := s.store.SavePipeline(p); err != nil {
			return fmt.Errorf("save %s pipeline: %w", p.Target, err)
		}
	}
	if err := s.store.SaveSchema(schema); err != nil {
		return fmt.Errorf("save schema: %w", err)
	}
	if err := s.store.SaveManifest(manifest); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}
	if err := s.store.AppendRunLog(manifest); err != nil {
		return fmt.Errorf("append run log: %w", err)
	}
	return nil
}

// prepare derives features, validates targets, splits and encodes the frame.
func (s *Service) prepare(frame *pipeline.Frame) (*trainingSet, error) {
	derived := pipeline.DeriveAll(frame).Drop(pipeline.FieldPatientID)

	var missing []string
	for _, target := range models.Targets {
		if !derived.HasColumn(target) {
			missing = append(missing, target)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrMissingTargets, missing)
	}

	labels := make(map[string][]float64, len(models.Targets))
	for _, target := range models.Targets {
		column := derived.Column(target)
		values := make([]float64, len(column))
		for i, raw := range column {
			v, ok := pipeline.NumericValue(raw)
			if !ok {
				return nil, fmt.Errorf("target %s row %d (%v): %w", target, i+1, raw, pipeline.ErrNotNumeric)
			}
			values[i] = v
		}
		labels[target] = values
	}
	features := derived.Drop(models.Targets...)

	trainPos, testPos := s.split(features.Len())
	if len(trainPos) < s.opts.Folds || len(testPos) == 0 {
		return nil, fmt.Errorf("dataset too small: %d rows for %d folds", features.Len(), s.opts.Folds)
	}
	train := features.Subset(trainPos)

	schema, err := pipeline.BuildSchema(train)
	if err != nil {
		return nil, err
	}
	X := make([][]float64, train.Len())
	for i, rec := range train.Rows {
		if X[i], err = schema.Encode(rec); err != nil {
			return nil, fmt.Errorf("encode training row %d: %w", i+1, err)
		}
	}

	set := &trainingSet{
		schema:  schema,
		dataset: tree.NewDataset(X, s.opts.MaxBins),
		rows:    make([]int, len(trainPos)),
		labels:  make(map[string][]float64, len(labels)),
		test:    features.Subset(testPos),
		testY:   make(map[string][]float64, len(labels)),
	}
	for i := range set.rows {
		set.rows[i] = i
	}
	for target, values := range labels {
		set.labels[target] = pick(values, trainPos)
		set.testY[target] = pick(values, testPos)
	}

	logger.Log.WithFields(map[string]interface{}{
		"train_samples": len(trainPos),
		"test_samples":  len(testPos),
		"features":      schema.Width(),
	}).Info("Prepared training data")
	return set, nil
}

// split shuffles row positions with the run seed and holds out the first
// ceil(TestSize*n) of them. Both halves come back in ascending order.
func (s *Service) split(n int) ([]int, []int) {
	perm := rand.New(rand.NewSource(s.opts.Seed)).Perm(n)
	testCount := int(math.Ceil(s.opts.TestSize * float64(n)))
	if testCount > n {
		testCount = n
	}
	test := append([]int(nil), perm[:testCount]...)
	train := append([]int(nil), perm[testCount:]...)
	sort.Ints(test)
	sort.Ints(train)
	return train, test
}

func pick(values []float64, positions []int) []float64 {
	out := make([]float64, len(positions))
	for i, pos := range positions {
		out[i] = values[pos]
	}
	return out
}

func (s *Service) trainTarget(ctx context.Context, set *trainingSet, target string, trainedAt time.Time) (*pipeline.Pipeline, models.TargetResult, error) {
	y := set.labels[target]
	var (
		best   *pipeline.Pipeline
		result = models.TargetResult{BestMAE: math.Inf(1)}
	)

	for _, cand := range candidates(s.space) {
		if err := ctx.Err(); err != nil {
			return nil, models.TargetResult{}, err
		}
		cand := cand
		fit := func(rows []int, params search.Params) (search.Regressor, error) {
			model, err := cand.train(set.dataset, y, rows, params, s.opts.Seed, 1)
			if err != nil {
				return nil, err
			}
			return model, nil
		}
		found, err := search.RandomizedSearch(ctx, set.dataset.X, y, set.rows, cand.grid, fit, search.Options{
			Iterations: s.opts.Iterations,
			Folds:      s.opts.Folds,
			Seed:       s.opts.Seed,
			Workers:    s.opts.Workers,
		})
		if err != nil {
			return nil, models.TargetResult{}, fmt.Errorf("%s %s search: %w", target, cand.name, err)
		}

		model, err := cand.train(set.dataset, y, set.rows, found.Best, s.opts.Seed, s.opts.Workers)
		if err != nil {
			return nil, models.TargetResult{}, fmt.Errorf("%s %s refit: %w", target, cand.name, err)
		}
		p := &pipeline.Pipeline{
			Target:    target,
			Family:    cand.name,
			Params:    found.Best,
			Schema:    set.schema,
			Model:     model,
			TrainedAt: trainedAt,
		}
		scores, err := evaluate(p, set.test, set.testY[target])
		if err != nil {
			return nil, models.TargetResult{}, err
		}

		logger.Log.WithFields(map[string]interface{}{
			"target": target,
			"model":  cand.name,
			"cv_mae": found.BestScore,
			"mae":    scores.MAE,
			"rmse":   scores.RMSE,
			"r2":     scores.R2,
		}).Info("Candidate evaluated")

		result.Candidates = append(result.Candidates, models.CandidateScore{
			Model:  cand.name,
			CVMAE:  found.BestScore,
			MAE:    scores.MAE,
			RMSE:   scores.RMSE,
			R2:     scores.R2,
			Params: found.Best,
		})
		if scores.MAE < result.BestMAE {
			best = p
			result.BestModel = cand.name
			result.BestMAE = scores.MAE
			result.RMSE = scores.RMSE
			result.R2 = scores.R2
			result.BestParams = found.Best
		}
	}
	if best == nil {
		return nil, models.TargetResult{}, fmt.Errorf("%s: no candidate produced a finite score", target)
	}

	logger.Log.WithFields(map[string]interface{}{
		"target": target,
		"model":  result.BestModel,
		"mae":    result.BestMAE,
	}).Info("Selected best model")
	return best, result, nil
}

// evaluate scores p on held-out records through the serving prediction path.
func evaluate(p *pipeline.Pipeline, test *pipeline.Frame, actual []float64) (metrics.Regression, error) {
	predicted := make([]float64, test.Len())
	for i, rec := range test.Rows {
		y, err := p.Predict(rec)
		if err != nil {
			return metrics.Regression{}, fmt.Errorf("evaluate held-out row %d: %w", i+1, err)
		}
		predicted[i] = y
	}
	return metrics.Evaluate(actual, predicted), nil
}

func (s *Service) fail(ctx context.Context, runID uuid.UUID, err error) {
	logger.WithField("run_id", runID.String()).WithError(err).Error("Training run failed")
	s.record(ctx, runID, StatusFailed, nil, err)
	s.publish(ctx, kafka.EventTrainingFailed, map[string]interface{}{
		"run_id": runID.String(),
		"error":  err.Error(),
	})
}

func (s *Service) record(ctx context.Context, runID uuid.UUID, status string, manifest *models.RunManifest, runErr error) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordRun(ctx, runID, status, manifest, runErr); err != nil {
		logger.WithField("run_id", runID.String()).WithError(err).WithField("status", status).Error("failed to record training run")
	}
}

func (s *Service) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, eventType, eventSource, data); err != nil {
		logger.Log.WithError(err).WithField("event_type", eventType).Error("failed to publish training event")
	}
}
