package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/config"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/database"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/kafka"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/logger"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/storage"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/training"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Log.WithError(err).Warn("Failed to read .env file")
	}
	logger.Init()
	cfg := config.Load()

	space, err := training.LoadSearchSpace(cfg.SearchSpacePath)
	if err != nil {
		logger.Log.WithError(err).WithField("path", cfg.SearchSpacePath).Fatal("Failed to load search space")
	}

	store := storage.NewModelStore(cfg.ModelDir)
	service, err := training.NewService(store, space, training.Options{
		Seed:       cfg.RandomSeed,
		TestSize:   cfg.TestSize,
		Iterations: cfg.SearchIterations,
		Folds:      cfg.CVFolds,
		Workers:    cfg.TrainingWorkers,
	})
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize training service")
	}

	if cfg.PostgresEnabled {
		db, err := database.GetPostgres()
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to connect to database")
		}
		defer database.ClosePostgres()

		repo := training.NewRepository(db, store.Dir())
		if err := repo.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Fatal("Failed to migrate training tables")
		}
		service.WithRecorder(repo)
	}

	if cfg.KafkaEnabled {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTrainingTopic)
		defer producer.Close()
		service.WithEvents(producer)
	}

	frame, err := storage.LoadCSV(cfg.DatasetPath)
	if err != nil {
		logger.Log.WithError(err).WithField("path", cfg.DatasetPath).Fatal("Failed to load dataset")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manifest, err := service.Run(ctx, frame)
	if err != nil {
		logger.Log.WithError(err).Fatal("Training failed")
	}

	for _, target := range models.Targets {
		result := manifest.Results[target]
		logger.Log.WithFields(map[string]interface{}{
			"target":      target,
			"best_model":  result.BestModel,
			"mae":         result.BestMAE,
			"rmse":        result.RMSE,
			"r2":          result.R2,
			"best_params": result.BestParams,
		}).Info("Target summary")
	}
	logger.Log.WithFields(map[string]interface{}{
		"run_id":    manifest.RunID,
		"model_dir": store.Dir(),
	}).Info("Models saved")
}
