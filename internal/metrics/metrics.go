package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Counter: insight cache lookups by feature and result
	// (fresh | stale | miss | error).
	InsightCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_cache_lookups_total",
			Help: "Total insight cache lookups by feature and result.",
		},
		[]string{"feature", "result"},
	)

	// Gauge: generation requests waiting in the rate-limited queue.
	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "generation_queue_depth",
			Help: "Number of generation requests waiting in the queue.",
		},
	)

	// Histogram: how long the drain loop waits for window capacity.
	QueueWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "generation_queue_wait_seconds",
			Help:    "Time spent waiting for rate-window capacity in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	// Counter: dispatched upstream calls by outcome (ok | error).
	UpstreamDispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_upstream_dispatches_total",
			Help: "Total generation calls dispatched upstream by outcome.",
		},
		[]string{"outcome"},
	)

	// Histogram: service HTTP latency in seconds.
	HTTPLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "insights_http_latency_seconds",
			Help:    "HTTP request latency for the insights service in seconds.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"path", "method", "status_code"},
	)
)

// Register is called once in main() to register metrics.
func Register() {
	prometheus.MustRegister(
		InsightCacheLookups,
		QueueDepth,
		QueueWaitSeconds,
		UpstreamDispatchesTotal,
		HTTPLatencySeconds,
	)
}

// Handler exposes the /metrics endpoint for Prometheus to scrape.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware measures HTTP latency for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rec, r)

		HTTPLatencySeconds.
			WithLabelValues(r.URL.Path, r.Method, strconv.Itoa(rec.statusCode)).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}
