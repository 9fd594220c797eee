package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eodd",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Control requests by route, method and status code.",
		},
		[]string{"route", "method", "code"},
	)

	// Event streams are excluded: their duration is the connection lifetime.
	requestSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eodd",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of control requests.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"route", "method"},
	)

	openStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "eodd",
			Subsystem: "http",
			Name:      "event_streams",
			Help:      "Open /events connections.",
		},
	)

	streamedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eodd",
			Subsystem: "http",
			Name:      "events_streamed_total",
			Help:      "CloudEvents written to /events clients by event kind.",
		},
		[]string{"kind"},
	)

	rejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eodd",
			Subsystem: "http",
			Name:      "rejected_total",
			Help:      "Requests refused with 429 by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, requestSeconds, openStreams, streamedTotal, rejectedTotal)
}

// statusRecorder remembers the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming handlers working behind the recorder.
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter { return sr.ResponseWriter }

// MetricsMiddleware counts requests by chi route pattern. The pattern is
// only known once the router has run, so labels are taken afterwards.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sr, r)

		route := routeLabel(r)
		requestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(sr.status)).Inc()
		if route != "/events" {
			requestSeconds.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		}
	})
}

// routeLabel keeps task ids out of label values.
func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func countRejected(reason string) {
	rejectedTotal.WithLabelValues(reason).Inc()
}
