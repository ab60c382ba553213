package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

const namespace = "crf"

var ratioBuckets = []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	bindingsTotal          *prometheus.CounterVec
	boundFieldsTotal       *prometheus.CounterVec
	locationFallbacksTotal *prometheus.CounterVec
	bindingFillRatio       *prometheus.HistogramVec
	completenessScore      *prometheus.HistogramVec
	comparisonsTotal       *prometheus.CounterVec
	comparisonSimilarity   *prometheus.HistogramVec
	rescoreRequestsTotal   *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	bindingsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "binding",
			Name:      "requests_total",
			Help:      "Total template bindings computed.",
		},
		[]string{"service", "endpoint"},
	)
	boundFieldsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "binding",
			Name:      "fields_total",
			Help:      "Bound template fields by matching rule.",
		},
		[]string{"service", "source"},
	)
	locationFallbacksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "binding",
			Name:      "location_fallbacks_total",
			Help:      "Location codes rendered with placeholder names.",
		},
		[]string{"service"},
	)
	bindingFillRatio := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "binding",
			Name:      "fill_ratio",
			Help:      "Share of template fields populated per binding.",
			Buckets:   ratioBuckets,
		},
		[]string{"service"},
	)
	completenessScore := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "completeness",
			Name:      "percentage",
			Help:      "Distribution of computed template completeness.",
			Buckets:   ratioBuckets,
		},
		[]string{"service", "endpoint"},
	)
	comparisonsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "comparison",
			Name:      "requests_total",
			Help:      "Total template comparisons.",
		},
		[]string{"service"},
	)
	comparisonSimilarity := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "comparison",
			Name:      "overall_similarity",
			Help:      "Distribution of overall similarity between compared templates.",
			Buckets:   ratioBuckets,
		},
		[]string{"service"},
	)
	rescoreRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "completeness",
			Name:      "rescore_requests_total",
			Help:      "Rescore requests accepted for asynchronous processing.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		bindingsTotal,
		boundFieldsTotal,
		locationFallbacksTotal,
		bindingFillRatio,
		completenessScore,
		comparisonsTotal,
		comparisonSimilarity,
		rescoreRequestsTotal,
	)

	return &HTTPServerMetrics{
		registry:               registry,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		bindingsTotal:          bindingsTotal,
		boundFieldsTotal:       boundFieldsTotal,
		locationFallbacksTotal: locationFallbacksTotal,
		bindingFillRatio:       bindingFillRatio,
		completenessScore:      completenessScore,
		comparisonsTotal:       comparisonsTotal,
		comparisonSimilarity:   comparisonSimilarity,
		rescoreRequestsTotal:   rescoreRequestsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses template and document ids so label cardinality
// stays bounded.
func normalizePath(path string) string {
	const prefix = "/v1/templates/"
	if !strings.HasPrefix(path, prefix) {
		return path
	}
	rest := strings.Split(strings.TrimPrefix(path, prefix), "/")
	if len(rest) == 1 && rest[0] == "compare" {
		return path
	}
	out := []string{"/v1/templates/{template_id}"}
	if len(rest) > 1 {
		out = append(out, rest[1])
	}
	if len(rest) > 2 && rest[1] == "bindings" {
		out = append(out, "{document_id}")
	}
	return strings.Join(out, "/")
}

func (m *HTTPServerMetrics) RecordBinding(service, endpoint string, binding domain.Binding) {
	m.bindingsTotal.WithLabelValues(service, endpoint).Inc()
	for _, f := range binding.Fields {
		source := string(f.Source)
		if source == "" {
			source = string(domain.SourceNone)
		}
		m.boundFieldsTotal.WithLabelValues(service, source).Inc()
	}
	if binding.LocationFallbacks > 0 {
		m.locationFallbacksTotal.WithLabelValues(service).Add(float64(binding.LocationFallbacks))
	}
	if binding.TotalCount > 0 {
		m.bindingFillRatio.WithLabelValues(service).Observe(float64(binding.PopulatedCount) / float64(binding.TotalCount))
	}
}

func (m *HTTPServerMetrics) RecordCompleteness(service, endpoint string, percentage float64) {
	m.completenessScore.WithLabelValues(service, endpoint).Observe(percentage)
}

func (m *HTTPServerMetrics) RecordComparison(service string, result domain.ComparisonResult) {
	m.comparisonsTotal.WithLabelValues(service).Inc()
	m.comparisonSimilarity.WithLabelValues(service).Observe(result.Similarity.Overall)
}

func (m *HTTPServerMetrics) RecordRescoreRequest(service string) {
	m.rescoreRequestsTotal.WithLabelValues(service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
