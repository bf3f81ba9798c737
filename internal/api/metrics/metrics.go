// Package metrics exposes the server's Prometheus instrumentation.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cloudspend"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests by method and route.",
			Buckets:   []float64{0.01, 0.05, 0.25, 1.0, 5.0, 30.0},
		},
		[]string{"method", "route"},
	)

	ingestUploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_uploads_total",
			Help:      "Count of billing CSV uploads by cloud and outcome.",
		},
		[]string{"cloud", "outcome"},
	)

	ingestRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_rows_total",
			Help:      "Count of billing rows by cloud, split into inserted and skipped.",
		},
		[]string{"cloud", "disposition"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(ingestUploadsTotal)
	prometheus.MustRegister(ingestRowsTotal)
}

// ObserveRequest records one served HTTP request.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	route := RouteLabel(path)
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveUpload records one completed (or rejected) billing upload.
func ObserveUpload(cloud, outcome string, inserted, skipped int) {
	ingestUploadsTotal.WithLabelValues(cloud, outcome).Inc()
	if inserted > 0 {
		ingestRowsTotal.WithLabelValues(cloud, "inserted").Add(float64(inserted))
	}
	if skipped > 0 {
		ingestRowsTotal.WithLabelValues(cloud, "skipped").Add(float64(skipped))
	}
}

// RouteLabel collapses per-entity path segments so metric label cardinality
// stays bounded. Only the ideas routes embed IDs.
func RouteLabel(path string) string {
	const ideasPrefix = "/api/ideas/"
	if !strings.HasPrefix(path, ideasPrefix) {
		return path
	}

	rest := strings.TrimPrefix(path, ideasPrefix)
	if rest == "" {
		return ideasPrefix
	}
	if _, sub, found := strings.Cut(rest, "/"); found && sub == "note" {
		return ideasPrefix + "{id}/note"
	}
	return ideasPrefix + "{id}"
}

// Handler serves the Prometheus exposition endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
