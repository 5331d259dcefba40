package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	chi_middleware "github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Deploy requests can legitimately run for minutes, so the buckets reach
// well past the usual sub-second range.
var defaultBuckets = []float64{.005, .025, .1, .5, 1, 2.5, 5, 10, 30, 60, 300, 900}

// PrometheusMiddlewareHandler records request counts and latency,
// partitioned by status code, method and matched route pattern. Route
// patterns rather than raw paths keep label cardinality bounded.
func PrometheusMiddlewareHandler(service string, buckets ...float64) func(http.Handler) http.Handler {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "requests_total",
			Help:        "HTTP requests processed, partitioned by status code, method and route.",
			ConstLabels: prometheus.Labels{"service": service},
		},
		[]string{"code", "method", "route"},
	)
	latency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "request_duration_seconds",
			Help:        "Request processing time, partitioned by status code, method and route.",
			ConstLabels: prometheus.Labels{"service": service},
			Buckets:     buckets,
		},
		[]string{"code", "method", "route"},
	)
	prometheus.MustRegister(requests, latency)

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chi_middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			code := strconv.Itoa(ww.Status())
			requests.WithLabelValues(code, r.Method, route).Inc()
			latency.WithLabelValues(code, r.Method, route).Observe(time.Since(start).Seconds())
		}
		return http.HandlerFunc(fn)
	}
}
