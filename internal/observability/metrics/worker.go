package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	rescoreTotal    *prometheus.CounterVec
	rescoreDuration *prometheus.HistogramVec
	rescoreInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec
	completeness    *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	rescoreTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "rescore_total",
			Help:      "Total template rescores by status.",
		},
		[]string{"service", "status"},
	)
	rescoreDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "rescore_duration_seconds",
			Help:      "Template rescore duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	rescoreInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "rescore_in_flight",
			Help:      "Number of in-flight template rescores.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between a rescore request and its processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	completeness := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "rescore_completeness_ratio",
			Help:      "Completeness stored by template rescores.",
			Buckets:   ratioBuckets,
		},
		[]string{"service"},
	)

	registry.MustRegister(rescoreTotal, rescoreDuration, rescoreInFlight, queueLag, completeness)

	return &WorkerMetrics{
		registry:        registry,
		rescoreTotal:    rescoreTotal,
		rescoreDuration: rescoreDuration,
		rescoreInFlight: rescoreInFlight,
		queueLag:        queueLag,
		completeness:    completeness,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartRescore() {
	m.rescoreInFlight.Inc()
}

func (m *WorkerMetrics) FinishRescore(service string, duration time.Duration, err error) {
	m.rescoreInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.rescoreTotal.WithLabelValues(service, status).Inc()
	m.rescoreDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) ObserveRescoreCompleteness(service string, percentage float64) {
	m.completeness.WithLabelValues(service).Observe(percentage)
}
