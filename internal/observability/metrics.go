package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsActive  prometheus.Gauge

	// Analysis metrics
	AnalysesTotal  *prometheus.CounterVec
	FormsDetected  prometheus.Histogram
	IframesFetched *prometheus.CounterVec

	// Model API metrics
	ModelRequestsTotal   *prometheus.CounterVec
	ModelRequestDuration *prometheus.HistogramVec
	ModelTokensUsed      *prometheus.CounterVec
	ModelCostTotal       prometheus.Counter
}

// NewMetrics creates a new metrics instance with all Prometheus metrics registered
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "formscanner"
	}

	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_active",
				Help:      "Number of active HTTP requests",
			},
		),
		AnalysesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyses_total",
				Help:      "Total number of form analyses",
			},
			[]string{"status"},
		),
		FormsDetected: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "forms_detected",
				Help:      "Number of forms detected per analysis",
				Buckets:   []float64{0, 1, 2, 3, 5, 10, 25},
			},
		),
		IframesFetched: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "iframes_fetched_total",
				Help:      "Total number of iframe fetches",
			},
			[]string{"status"},
		),
		ModelRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_requests_total",
				Help:      "Total number of model API requests",
			},
			[]string{"model", "status"},
		),
		ModelRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "model_request_duration_seconds",
				Help:      "Model API request duration in seconds",
				Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"model"},
		),
		ModelTokensUsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_tokens_used_total",
				Help:      "Total number of tokens used",
			},
			[]string{"model", "type"}, // type: input, output
		),
		ModelCostTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_cost_usd_total",
				Help:      "Total estimated cost in USD",
			},
		),
	}
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAnalysis records the outcome of one analysis
func (m *Metrics) RecordAnalysis(status string, formsDetected int) {
	m.AnalysesTotal.WithLabelValues(status).Inc()
	if status == "success" {
		m.FormsDetected.Observe(float64(formsDetected))
	}
}

// RecordIframeFetch records one iframe fetch outcome
func (m *Metrics) RecordIframeFetch(succeeded bool) {
	status := "success"
	if !succeeded {
		status = "failure"
	}
	m.IframesFetched.WithLabelValues(status).Inc()
}

// RecordModelRequest records model API metrics
func (m *Metrics) RecordModelRequest(model, status string, duration time.Duration, inputTokens, outputTokens int, cost float64) {
	m.ModelRequestsTotal.WithLabelValues(model, status).Inc()
	m.ModelRequestDuration.WithLabelValues(model).Observe(duration.Seconds())
	m.ModelTokensUsed.WithLabelValues(model, "input").Add(float64(inputTokens))
	m.ModelTokensUsed.WithLabelValues(model, "output").Add(float64(outputTokens))
	m.ModelCostTotal.Add(cost)
}

// HTTPMiddleware returns middleware for recording HTTP metrics
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.HTTPRequestsActive.Inc()
		defer m.HTTPRequestsActive.Dec()

		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		m.RecordHTTPRequest(r.Method, r.URL.Path, wrapped.statusCode, time.Since(start))
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
