package telemetry

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	AlertPlayed  = "played"
	AlertFailed  = "failed"
	AlertDropped = "dropped"
)

var (
	Registry = prometheus.NewRegistry()

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nodebell",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nodebell",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"route"},
	)

	EventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nodebell",
			Name:      "events_total",
			Help:      "Total number of submitted events.",
		},
	)

	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nodebell",
			Name:      "alerts_total",
			Help:      "Audible alerts by outcome (played, failed, dropped).",
		},
		[]string{"result"},
	)

	nodeCount atomic.Pointer[func() int]

	registeredNodes = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "nodebell",
			Name:      "registered_nodes",
			Help:      "Number of nodes in the registry.",
		},
		func() float64 {
			fn := nodeCount.Load()
			if fn == nil {
				return 0
			}
			return float64((*fn)())
		},
	)

	startTime = time.Now()
	uptime    = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "nodebell",
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds.",
		},
		func() float64 { return time.Since(startTime).Seconds() },
	)
)

func init() {
	Registry.MustRegister(RequestsTotal, RequestDuration, EventsTotal, AlertsTotal, registeredNodes, uptime)
}

// MetricsHandler exposes the private registry in the Prometheus text format.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// SetNodeCounter sets the source of the registered_nodes gauge.
func SetNodeCounter(fn func() int) {
	nodeCount.Store(&fn)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Instrument is chi middleware recording request count and latency labeled by
// the matched route pattern, so node ids never become label values.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		class := strconv.Itoa(sw.status/100) + "xx"
		RequestsTotal.WithLabelValues(route, class).Inc()
		RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
