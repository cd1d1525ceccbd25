package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aethercare",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aethercare",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"method", "route"},
	)

	reportsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aethercare",
			Subsystem: "reports",
			Name:      "generated_total",
			Help:      "Report generation requests by outcome.",
		},
		[]string{"outcome"},
	)

	aiCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aethercare",
			Subsystem: "ai",
			Name:      "calls_total",
			Help:      "Calls to external AI services by result.",
		},
		[]string{"service", "result"},
	)

	aiDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aethercare",
			Subsystem: "ai",
			Name:      "call_duration_seconds",
			Help:      "Duration of external AI calls.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"service"},
	)

	existencePolls = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "aethercare",
			Subsystem: "storage",
			Name:      "existence_poll_attempts_total",
			Help:      "Object existence checks made while resolving report inputs.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		reportsGenerated,
		aiCalls,
		aiDuration,
		existencePolls,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one finished request. route is the matched
// pattern, not the raw path, to keep cardinality bounded.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordReport counts a finished report generation. Typical outcomes are
// success, bad_request, not_found, error and metadata_failed.
func RecordReport(outcome string) {
	reportsGenerated.WithLabelValues(outcome).Inc()
}

// RecordAICall counts one external AI call.
func RecordAICall(service string, err error, d time.Duration) {
	result := "success"
	if err != nil {
		result = "error"
	}
	aiCalls.WithLabelValues(service, result).Inc()
	aiDuration.WithLabelValues(service).Observe(d.Seconds())
}

// RecordExistencePoll counts one object existence check.
func RecordExistencePoll() {
	existencePolls.Inc()
}
