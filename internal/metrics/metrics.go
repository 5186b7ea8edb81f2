// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_submissions_total",
			Help: "Graded submissions by verdict",
		},
		[]string{"verdict"},
	)

	SubmissionPercentage = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quiz_submission_percentage",
			Help:    "Distribution of submission percentages",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	TokenizeTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "markup_tokenize_total",
			Help: "Markup tokenize calls served over HTTP",
		},
	)

	ReportsPersisted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_reports_persisted_total",
			Help: "Reports written to PostgreSQL by write path",
		},
		[]string{"mode"},
	)

	QueueRequeued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_requeued_total",
			Help: "Queue items pushed back after a failed write",
		},
		[]string{"queue"},
	)

	StreamConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quiz_stream_connections",
			Help: "Open quiz WebSocket connections",
		},
	)
)

var once sync.Once

// Init registers every collector with the default registry. Safe to call twice.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			SubmissionsTotal,
			SubmissionPercentage,
			TokenizeTotal,
			ReportsPersisted,
			QueueRequeued,
			StreamConnections,
		)
	})
}

// ObserveSubmission records one graded submission.
func ObserveSubmission(verdict string, percentage int) {
	SubmissionsTotal.WithLabelValues(verdict).Inc()
	SubmissionPercentage.Observe(float64(percentage))
}

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
