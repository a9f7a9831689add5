package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ports "fuel-blend-prediction-service/internal/core/ports/output"
)

const namespace = "fuel_blend"

// Recorder exports HTTP and prediction metrics
type Recorder struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	predictions       *prometheus.CounterVec
	predictionLatency prometheus.Histogram
	predictedRows     prometheus.Histogram
}

var _ ports.PredictionMetrics = (*Recorder)(nil)

// NewRecorder creates a Recorder with its own registry, including the Go
// runtime and process collectors
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests by route and status.",
			},
			[]string{"method", "route", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "prediction",
				Name:      "requests_total",
				Help:      "Total number of prediction runs by outcome.",
			},
			[]string{"outcome"},
		),
		predictionLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "prediction",
				Name:      "duration_seconds",
				Help:      "Time spent loading the dataset, predicting and merging.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
			},
		),
		predictedRows: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "prediction",
				Name:      "dataset_rows",
				Help:      "Number of dataset rows per prediction run.",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			},
		),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.httpRequests,
		r.httpLatency,
		r.predictions,
		r.predictionLatency,
		r.predictedRows,
	)
	return r
}

func (r *Recorder) ObserveHTTP(method, route string, status int, duration time.Duration) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (r *Recorder) ObservePrediction(outcome string, rows int, duration time.Duration) {
	r.predictions.WithLabelValues(outcome).Inc()
	r.predictionLatency.Observe(duration.Seconds())
	if outcome != ports.OutcomeError {
		r.predictedRows.Observe(float64(rows))
	}
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
