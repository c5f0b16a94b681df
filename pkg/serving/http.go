package serving

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/logger"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/observability/metrics"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/pipeline"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/training"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

var errNotObject = errors.New("request body must be a JSON object")

type Predictor interface {
	Predict(rec models.PatientRecord) (models.PredictionResponse, error)
	Manifest() models.RunManifest
	Schema() *pipeline.Schema
}

type PredictionCache interface {
	Key(rec models.PatientRecord) (string, error)
	Get(ctx context.Context, key string) (models.PredictionResponse, bool, error)
	Set(ctx context.Context, key string, resp models.PredictionResponse) error
}

type PredictionRecorder interface {
	RecordPrediction(ctx context.Context, rec models.PatientRecord, resp models.PredictionResponse, latency time.Duration) error
}

// PredictionHistory lists logged predictions, newest first.
type PredictionHistory interface {
	Recent(ctx context.Context, limit int) ([]PredictionLog, error)
}

// RunHistory reads the training run audit trail.
type RunHistory interface {
	List(ctx context.Context, limit int) ([]training.RunModel, error)
	Get(ctx context.Context, runID uuid.UUID) (*training.RunModel, error)
}

type HTTPHandler struct {
	predictor   Predictor
	cache       PredictionCache
	recorder    PredictionRecorder
	predictions PredictionHistory
	runs        RunHistory
	maxBody     int64
	staticDir   string
}

func NewHTTPHandler(predictor Predictor, maxBody int64, staticDir string) *HTTPHandler {
	return &HTTPHandler{predictor: predictor, maxBody: maxBody, staticDir: staticDir}
}

func (h *HTTPHandler) WithCache(cache PredictionCache) *HTTPHandler {
	h.cache = cache
	return h
}

func (h *HTTPHandler) WithRecorder(recorder PredictionRecorder) *HTTPHandler {
	h.recorder = recorder
	return h
}

func (h *HTTPHandler) WithPredictionHistory(predictions PredictionHistory) *HTTPHandler {
	h.predictions = predictions
	return h
}

func (h *HTTPHandler) WithRunHistory(runs RunHistory) *HTTPHandler {
	h.runs = runs
	return h
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/", h.handleIndex).Methods(http.MethodGet)
	router.HandleFunc("/predict", h.handlePredict).Methods(http.MethodPost)
	router.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/models", h.handleModels).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/schema", h.handleSchema).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/predictions/recent", h.handleRecentPredictions).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/runs", h.handleListRuns).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/runs/{id}", h.handleGetRun).Methods(http.MethodGet)
}

func (h *HTTPHandler) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	rec, err := decodeRecord(r)
	if err != nil {
		logger.Log.WithError(err).Warn("invalid prediction payload")
		metrics.PredictionsTotal.WithLabelValues("error").Inc()
		writeError(w, err)
		return
	}

	ctx := r.Context()
	key, cached := h.lookup(ctx, rec)
	if cached != nil {
		metrics.PredictionsTotal.WithLabelValues("ok").Inc()
		writeJSON(w, http.StatusOK, cached)
		return
	}

	resp, err := h.predictor.Predict(rec)
	latency := time.Since(start)
	metrics.PredictionDuration.Observe(latency.Seconds())
	if err != nil {
		logger.Log.WithError(err).Error("prediction failed")
		metrics.PredictionsTotal.WithLabelValues("error").Inc()
		writeError(w, err)
		return
	}
	metrics.PredictionsTotal.WithLabelValues("ok").Inc()

	if h.cache != nil && key != "" {
		if err := h.cache.Set(ctx, key, resp); err != nil {
			logger.Log.WithError(err).Warn("failed to cache prediction")
		}
	}
	if h.recorder != nil {
		if err := h.recorder.RecordPrediction(ctx, rec, resp, latency); err != nil {
			logger.Log.WithError(err).Warn("failed to record prediction")
		}
	}

	logger.Log.WithFields(map[string]interface{}{
		"fields":     len(rec),
		"latency_ms": latency.Milliseconds(),
	}).Info("Prediction completed")
	writeJSON(w, http.StatusOK, resp)
}

// lookup returns the cache key for rec and the cached response, if any.
// Cache failures are logged and treated as a miss.
func (h *HTTPHandler) lookup(ctx context.Context, rec models.PatientRecord) (string, models.PredictionResponse) {
	if h.cache == nil {
		return "", nil
	}
	key, err := h.cache.Key(rec)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to build cache key")
		return "", nil
	}
	resp, ok, err := h.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.PredictionCacheTotal.WithLabelValues("error").Inc()
		logger.Log.WithError(err).Warn("prediction cache lookup failed")
		return key, nil
	case !ok:
		metrics.PredictionCacheTotal.WithLabelValues("miss").Inc()
		return key, nil
	default:
		metrics.PredictionCacheTotal.WithLabelValues("hit").Inc()
		return key, resp
	}
}

func decodeRecord(r *http.Request) (models.PatientRecord, error) {
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	var body interface{}
	if err := decoder.Decode(&body); err != nil {
		return nil, err
	}
	obj, ok := body.(map[string]interface{})
	if !ok {
		return nil, errNotObject
	}
	return models.PatientRecord(obj), nil
}

func (h *HTTPHandler) handleIndex(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(h.staticDir, "index.html")
	if _, err := os.Stat(path); err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *HTTPHandler) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.predictor.Manifest())
}

// handleSchema exposes the training schema so remote clients can build input
// forms with the same defaults.
func (h *HTTPHandler) handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.predictor.Schema())
}

func (h *HTTPHandler) handleRecentPredictions(w http.ResponseWriter, r *http.Request) {
	if h.predictions == nil {
		writeStatus(w, http.StatusServiceUnavailable, "prediction history unavailable")
		return
	}
	limit, ok := historyLimit(w, r)
	if !ok {
		return
	}
	logs, err := h.predictions.Recent(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list predictions")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *HTTPHandler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeStatus(w, http.StatusServiceUnavailable, "training run history unavailable")
		return
	}
	limit, ok := historyLimit(w, r)
	if !ok {
		return
	}
	runs, err := h.runs.List(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list training runs")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *HTTPHandler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeStatus(w, http.StatusServiceUnavailable, "training run history unavailable")
		return
	}
	runID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeStatus(w, http.StatusBadRequest, "invalid run id")
		return
	}
	run, err := h.runs.Get(r.Context(), runID)
	switch {
	case errors.Is(err, training.ErrRunNotFound):
		writeStatus(w, http.StatusNotFound, err.Error())
	case err != nil:
		logger.Log.WithError(err).WithField("run_id", runID.String()).Error("failed to load training run")
		writeError(w, err)
	default:
		writeJSON(w, http.StatusOK, run)
	}
}

// historyLimit reads the optional limit query parameter, capped at
// maxHistoryLimit. It writes a 400 and returns false when limit is invalid.
func historyLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultHistoryLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		writeStatus(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return limit, true
}

func writeError(w http.ResponseWriter, err error) {
	writeStatus(w, http.StatusInternalServerError, err.Error())
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.WithError(err).Error("failed to write response")
	}
}
