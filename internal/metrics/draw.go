package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	drawTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draw_requests_total",
			Help: "Total confirm_draw requests by result",
		},
		[]string{"result"},
	)

	drawDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "draw_request_duration_ms",
			Help:    "Confirm_draw request duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result"},
	)

	drawWinners = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "draw_winners_count",
			Help:    "Number of winners selected per draw",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
)

// RecordDraw records business metrics for a confirm_draw call.
// result should be one of "success", "already_drawn", "invalid_state", "fail".
func RecordDraw(result string, winners int, started time.Time) {
	drawTotal.WithLabelValues(result).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	drawDuration.WithLabelValues(result).Observe(durMs)
	if result == "success" {
		drawWinners.Observe(float64(winners))
	}
}
