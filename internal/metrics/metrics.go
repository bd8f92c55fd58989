// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesTotal counts frames read from the tunnel device.
	FramesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bubo_frames_total",
			Help: "Total number of frames read from the tunnel device",
		},
	)

	// QueriesTotal counts classified DNS queries by verdict.
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bubo_queries_total",
			Help: "Total number of classified DNS queries",
		},
		[]string{"verdict"},
	)

	// DroppedTotal counts frames dropped by stage.
	DroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bubo_dropped_frames_total",
			Help: "Total number of frames dropped without a response",
		},
		[]string{"reason"},
	)

	// ForwardLatencySeconds measures upstream exchange latency.
	ForwardLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bubo_forward_latency_seconds",
			Help:    "Latency of upstream DNS exchanges in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		},
	)

	// ForwardErrorsTotal counts failed upstream exchanges.
	ForwardErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bubo_forward_errors_total",
			Help: "Total number of failed upstream DNS exchanges",
		},
	)
)
