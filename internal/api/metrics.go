package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytestream_http_requests_total",
			Help: "Total HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bytestream_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	uploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bytestream_uploads_total",
		Help: "Files uploaded successfully.",
	})

	uploadsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytestream_uploads_rejected_total",
			Help: "Uploads rejected before persistence.",
		},
		[]string{"reason"},
	)

	downloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bytestream_downloads_total",
		Help: "Successful retrievals through the gate.",
	})

	emailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytestream_emails_total",
			Help: "Retrieval-link emails by outcome.",
		},
		[]string{"status"},
	)
)

func metricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			path := normalizePath(r.URL.Path)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(ww.Status())).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// normalizePath collapses token segments so metric label cardinality stays
// bounded.
func normalizePath(path string) string {
	if strings.HasPrefix(path, "/file/") && len(path) > len("/file/") {
		return "/file/{id}"
	}
	return path
}
