package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/config"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/database"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/logger"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/observability/metrics"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/serving"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/serving/middleware"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/serving/predictor"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/storage"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/training"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Log.WithError(err).Warn("Failed to read .env file")
	}
	logger.Init()
	cfg := config.Load()

	store := storage.NewModelStore(cfg.ModelDir)
	engine, err := predictor.Load(store)
	if err != nil {
		logger.Log.WithError(err).WithField("model_dir", cfg.ModelDir).Fatal("Failed to load models")
	}
	metrics.ObserveManifest(engine.Manifest())

	handler := serving.NewHTTPHandler(engine, cfg.MaxRequestBody, cfg.StaticDir)

	if cfg.RedisEnabled {
		client, err := database.GetRedis()
		if err != nil {
			logger.Log.WithError(err).Warn("Redis unavailable, prediction cache disabled")
		} else {
			defer database.CloseRedis()
			handler.WithCache(storage.NewPredictionCache(client, engine.Manifest().RunID, cfg.PredictionCacheTTL))
		}
	}

	if cfg.PostgresEnabled {
		db, err := database.GetPostgres()
		if err != nil {
			logger.Log.WithError(err).Warn("Postgres unavailable, prediction log and history disabled")
		} else {
			defer database.ClosePostgres()
			repo := serving.NewRepository(db, engine.Manifest().RunID)
			if err := repo.AutoMigrate(); err != nil {
				logger.Log.WithError(err).Fatal("Failed to migrate prediction log table")
			}
			runs := training.NewRepository(db, cfg.ModelDir)
			if err := runs.AutoMigrate(); err != nil {
				logger.Log.WithError(err).Fatal("Failed to migrate training run table")
			}
			handler.WithRecorder(repo).WithPredictionHistory(repo).WithRunHistory(runs)
		}
	}

	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Instrument)
	handler.Register(router)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	var root http.Handler = router
	root = middleware.BodyLimit(cfg.MaxRequestBody)(root)
	root = middleware.RateLimit(float64(cfg.RateLimitRPS), cfg.RateLimitBurst)(root)
	root = middleware.CORS(root)
	root = middleware.Logging(root)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      root,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":   cfg.ServerHost,
			"port":   cfg.ServerPort,
			"run_id": engine.Manifest().RunID,
		}).Info("Serving Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Serving Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Serving Service stopped")
}
