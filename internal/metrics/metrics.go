package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Refresh outcomes.
const (
	OutcomeSuccess           = "success"
	OutcomeSourceUnavailable = "source_unavailable"
	OutcomeFailed            = "failed"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "countrycache",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "countrycache",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "countrycache",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	refreshRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "countrycache",
			Subsystem: "refresh",
			Name:      "runs_total",
			Help:      "Total number of refresh runs by outcome.",
		},
		[]string{"outcome"},
	)

	refreshRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "countrycache",
			Subsystem: "refresh",
			Name:      "records_total",
			Help:      "Country records handled by refreshes, by result.",
		},
		[]string{"result"},
	)

	refreshDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "countrycache",
			Subsystem: "refresh",
			Name:      "duration_seconds",
			Help:      "Duration of refresh runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"outcome"},
	)

	reportFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "countrycache",
			Subsystem: "report",
			Name:      "render_failures_total",
			Help:      "Summary image regenerations that failed.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		refreshRuns,
		refreshRecords,
		refreshDuration,
		reportFailures,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		path := CanonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordRefresh records one refresh run.
func RecordRefresh(outcome string, processed, failed int, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	refreshRuns.WithLabelValues(outcome).Inc()
	refreshDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if processed > 0 {
		refreshRecords.WithLabelValues("processed").Add(float64(processed))
	}
	if failed > 0 {
		refreshRecords.WithLabelValues("error").Add(float64(failed))
	}
}

// RecordReportFailure counts a failed summary regeneration.
func RecordReportFailure() {
	reportFailures.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// CanonicalPath collapses per-country paths so label cardinality stays bounded.
func CanonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "countries" || len(parts) == 1 {
		return "/" + parts[0]
	}
	switch parts[1] {
	case "refresh", "image":
		return "/countries/" + parts[1]
	}
	return "/countries/:name"
}
