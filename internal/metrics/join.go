package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	joinTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "join_requests_total",
			Help: "Total join requests by result",
		},
		[]string{"result"},
	)

	joinDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "join_request_duration_ms",
			Help:    "Join request duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result"},
	)
)

// RecordJoin records business metrics for a join call.
// result should be one of "success", "duplicate", "not_open", "fail".
func RecordJoin(result string, started time.Time) {
	joinTotal.WithLabelValues(result).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	joinDuration.WithLabelValues(result).Observe(durMs)
}
