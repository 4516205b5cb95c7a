package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Shared HTTP metrics.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Authentication metrics.
var (
	authAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Authentication attempts by credential scheme and outcome.",
		},
		[]string{"scheme", "result"},
	)

	sessionsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_sessions_created_total",
		Help: "Sessions minted from credentials or login links.",
	})

	loginLinksRedeemedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_links_redeemed_total",
			Help: "Single-use login link redemptions by outcome.",
		},
		[]string{"result"},
	)
)

// Init registers all metrics with the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		authAttemptsTotal, sessionsCreatedTotal, loginLinksRedeemedTotal,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAuthAttempt records one authentication outcome.
// scheme: basic|bearer|cookie|none, result: ok|denied|bad_request|error.
func ObserveAuthAttempt(scheme, result string) {
	authAttemptsTotal.WithLabelValues(scheme, result).Inc()
}

// ObserveSessionCreated counts a freshly minted session.
func ObserveSessionCreated() {
	sessionsCreatedTotal.Inc()
}

// ObserveLoginLinkRedemption records one redemption outcome.
// result: ok|invalid|expired|used|error.
func ObserveLoginLinkRedemption(result string) {
	loginLinksRedeemedTotal.WithLabelValues(result).Inc()
}

// CanonicalPath collapses per-entity path segments so metric label
// cardinality stays bounded.
func CanonicalPath(path string) string {
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		path = path[:idx]
	}
	if path == "" {
		return "/"
	}
	segments := strings.Split(path, "/")
	switch {
	case len(segments) == 4 && segments[1] == "auth" && segments[2] == "login" && segments[3] != "":
		return "/auth/login/:token"
	case len(segments) >= 3 && segments[1] == "user" && segments[2] != "":
		segments[2] = ":id"
		return strings.Join(segments, "/")
	}
	return path
}

// Instrument wraps a handler with RPS, latency and in-flight tracking.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for labelling.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
