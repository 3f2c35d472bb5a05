// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation. Metrics() measures HTTP
// request counts, latencies, and in-flight concurrency with bounded label
// cardinality (method, registered route path, status). The job lifecycle
// counters are incremented by the handlers so dashboards can track machine
// activity without scraping the database.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// httpReqs counts requests by method, route path, and status code.
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// httpLat records request duration in seconds by method and route path.
	// Status is omitted to keep histogram cardinality lower.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// httpInflight gauges the number of in-flight requests.
	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// jobsStarted counts jobs started through any surface.
	jobsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "plug_jobs_started_total",
			Help: "Total number of plug jobs started.",
		},
	)

	// jobsCompleted counts terminal transitions by final status.
	jobsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plug_jobs_completed_total",
			Help: "Total number of plug jobs reaching a terminal status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, jobsStarted, jobsCompleted)
}

// JobStarted records one started job.
func JobStarted() { jobsStarted.Inc() }

// JobCompleted records one terminal transition into the given status.
func JobCompleted(status string) { jobsCompleted.WithLabelValues(status).Inc() }

// Metrics returns a Gin middleware that instruments requests with
// Prometheus. The "path" label uses the registered route (c.FullPath()) to
// avoid unbounded cardinality from raw URLs, falling back to the raw path
// for unmatched routes.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		httpReqs.WithLabelValues(method, path, status).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
