// Package metrics collects and exposes Prometheus metrics for the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector gathers HTTP and business-level metrics.
type Collector struct {
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	signups        prometheus.Counter
	logins         prometheus.Counter
	passwordResets prometheus.Counter
	ordersPlaced   prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefleet_http_requests_total",
			Help: "Total HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefleet_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		signups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefleet_signups_total",
			Help: "Total successful user registrations.",
		}),
		logins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefleet_logins_total",
			Help: "Total successful logins.",
		}),
		passwordResets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefleet_password_resets_total",
			Help: "Total completed password resets.",
		}),
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefleet_orders_placed_total",
			Help: "Total orders placed.",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.signups,
		c.logins,
		c.passwordResets,
		c.ordersPlaced,
	)

	return c
}

// RecordSignup counts a successful registration.
func (c *Collector) RecordSignup() { c.signups.Inc() }

// RecordLogin counts a successful login.
func (c *Collector) RecordLogin() { c.logins.Inc() }

// RecordPasswordReset counts a completed password reset.
func (c *Collector) RecordPasswordReset() { c.passwordResets.Inc() }

// RecordOrderPlaced counts a placed order.
func (c *Collector) RecordOrderPlaced() { c.ordersPlaced.Inc() }

// statusRecorder captures the status code written by the handler chain.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency. The route label is the chi
// route pattern, not the raw path, so ids don't blow up label cardinality.
func (c *Collector) Middleware(next http.Handler) http.Handler {
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

		c.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		c.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the Prometheus scrape endpoint for the given gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
