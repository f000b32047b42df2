// Package metrics exposes service metrics on a private Prometheus registry.
package metrics

import (
	"math"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "houseprice"

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing, so core packages can be used without a registry.
type Metrics struct {
	Predictions       *prometheus.CounterVec
	PredictDuration   prometheus.Histogram
	Retrains          *prometheus.CounterVec
	RetrainDuration   prometheus.Histogram
	ModelR2           prometheus.Gauge
	ModelColumns      prometheus.Gauge
	ModelFallback     prometheus.Gauge
	UnseenCategories  prometheus.Counter
	TrainingRowsTotal prometheus.Gauge
}

// New creates the collectors without registering them.
func New() *Metrics {
	return &Metrics{
		Predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "predictions_total",
				Help:      "Prediction requests by outcome",
			},
			[]string{"outcome"},
		),
		PredictDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Time spent validating, encoding and scoring one request",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		Retrains: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retrains_total",
				Help:      "Training runs by outcome",
			},
			[]string{"outcome"},
		),
		RetrainDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrain_duration_seconds",
			Help:      "Wall time of a training run",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		ModelR2: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "r2",
			Help:      "Held-out R² of the served model, NaN for the fallback",
		}),
		ModelColumns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "columns",
			Help:      "Width of the served model's feature manifest",
		}),
		ModelFallback: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "fallback",
			Help:      "1 while the constant fallback model is served",
		}),
		UnseenCategories: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unseen_categories_total",
			Help:      "Categorical values at inference that the model was not trained on",
		}),
		TrainingRowsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "training_rows",
			Help:      "Rows that survived normalization in the served model's training set",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Predictions,
		m.PredictDuration,
		m.Retrains,
		m.RetrainDuration,
		m.ModelR2,
		m.ModelColumns,
		m.ModelFallback,
		m.UnseenCategories,
		m.TrainingRowsTotal,
	}
}

// ObservePrediction records one prediction request.
func (m *Metrics) ObservePrediction(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Predictions.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		m.PredictDuration.Observe(d.Seconds())
	}
}

// ObserveRetrain records one training run.
func (m *Metrics) ObserveRetrain(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Retrains.WithLabelValues(outcome).Inc()
	m.RetrainDuration.Observe(d.Seconds())
}

// AddUnseen counts unseen categorical values.
func (m *Metrics) AddUnseen(n int) {
	if m == nil || n == 0 {
		return
	}
	m.UnseenCategories.Add(float64(n))
}

// SetModel describes the model now being served.
func (m *Metrics) SetModel(r2 *float64, columns, rows int, fallback bool) {
	if m == nil {
		return
	}
	if r2 != nil {
		m.ModelR2.Set(*r2)
	} else {
		m.ModelR2.Set(math.NaN())
	}
	m.ModelColumns.Set(float64(columns))
	m.TrainingRowsTotal.Set(float64(rows))
	if fallback {
		m.ModelFallback.Set(1)
	} else {
		m.ModelFallback.Set(0)
	}
}

// Registry owns a private Prometheus registry with the service metrics and
// the Go runtime and process collectors.
type Registry struct {
	prometheusRegistry *prometheus.Registry
	Metrics            *Metrics
}

// NewRegistry creates and populates a registry.
func NewRegistry() *Registry {
	r := &Registry{
		prometheusRegistry: prometheus.NewRegistry(),
		Metrics:            New(),
	}
	r.prometheusRegistry.MustRegister(r.Metrics.collectors()...)
	r.prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// PrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// Handler serves the exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prometheusRegistry, promhttp.HandlerOpts{})
}
