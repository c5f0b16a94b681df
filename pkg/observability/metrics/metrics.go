package metrics

import (
	"net/http"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diet_predictions_total",
			Help: "Prediction requests by outcome (ok, error).",
		},
		[]string{"status"},
	)

	PredictionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "diet_prediction_duration_seconds",
			Help:    "Time spent computing all target predictions for one record.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5},
		},
	)

	PredictionCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diet_prediction_cache_total",
			Help: "Prediction cache lookups by result (hit, miss, error).",
		},
		[]string{"result"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diet_http_requests_total",
			Help: "HTTP requests by method, route template and status code.",
		},
		[]string{"method", "route", "code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "diet_http_request_duration_seconds",
			Help:    "HTTP request latency by route template.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ModelHeldOutMAE = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "diet_model_heldout_mae",
			Help: "Held-out MAE of the loaded model per target.",
		},
		[]string{"target", "family"},
	)
)

// ObserveManifest publishes the held-out scores of the loaded run.
func ObserveManifest(m models.RunManifest) {
	ModelHeldOutMAE.Reset()
	for target, result := range m.Results {
		ModelHeldOutMAE.WithLabelValues(target, result.BestModel).Set(result.BestMAE)
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
