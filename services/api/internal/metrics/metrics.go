package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/estatehub/marketplace/services/api/internal/domain"
)

// Metrics owns a private registry with the service's collectors.
type Metrics struct {
	Registry *prometheus.Registry

	transitions     *prometheus.CounterVec
	expiryRuns      prometheus.Counter
	expiredListings prometheus.Counter
	expiryFailures  prometheus.Counter
	expiryDuration  prometheus.Histogram
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

func New(namespace string) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_transitions_total",
			Help:      "Listing status transition attempts by source, target and outcome.",
		}, []string{"from", "to", "outcome"}),
		expiryRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expiry_runs_total",
			Help:      "Completed auto-expire batches.",
		}),
		expiredListings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_listings_total",
			Help:      "Listings moved to expired by the auto-expire batch.",
		}),
		expiryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expiry_failures_total",
			Help:      "Listings the auto-expire batch failed to transition.",
		}),
		expiryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "expiry_run_duration_seconds",
			Help:      "Duration of auto-expire batches.",
			Buckets:   prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	m.Registry.MustRegister(
		m.transitions,
		m.expiryRuns,
		m.expiredListings,
		m.expiryFailures,
		m.expiryDuration,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveTransition(from, to domain.ListingStatus, outcome string) {
	fromLabel := string(from)
	if fromLabel == "" {
		fromLabel = "unknown"
	}
	m.transitions.WithLabelValues(fromLabel, string(to), outcome).Inc()
}

func (m *Metrics) ObserveExpiryRun(expired, failed int, took time.Duration) {
	m.expiryRuns.Inc()
	m.expiredListings.Add(float64(expired))
	m.expiryFailures.Add(float64(failed))
	m.expiryDuration.Observe(took.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Middleware records request counts and latency labelled by the matched chi
// route pattern rather than the raw path.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
