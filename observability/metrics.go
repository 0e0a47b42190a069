// Package observability wires logging and Prometheus metrics.
package observability

import (
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the service's collectors. Build one per registry so tests
// can use an isolated prometheus.NewRegistry().
type Metrics struct {
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	ReportsCreated    *prometheus.CounterVec
	OTPSent           *prometheus.CounterVec
	StatusTransitions *prometheus.CounterVec
	AutoAssignments   *prometheus.CounterVec
	ClusteringRuns    *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jansarthi_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jansarthi_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ReportsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jansarthi_reports_created_total",
			Help: "Issues reported by citizens, by issue type",
		}, []string{"issue_type"}),
		OTPSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jansarthi_otp_sent_total",
			Help: "OTP messages sent, by result",
		}, []string{"result"}),
		StatusTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jansarthi_status_transitions_total",
			Help: "Issue status changes, by source and target status",
		}, []string{"from", "to"}),
		AutoAssignments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jansarthi_auto_assignments_total",
			Help: "Cluster based auto assignments, by result",
		}, []string{"result"}),
		ClusteringRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jansarthi_clustering_runs_total",
			Help: "Clustering runs, by algorithm and status",
		}, []string{"algorithm", "status"}),
	}
}

// NewLogger returns the JSON logger used by the server.
func NewLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
