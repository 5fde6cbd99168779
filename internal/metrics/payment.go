package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	paymentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_confirm_total",
			Help: "Total payment confirmations by result and tier",
		},
		[]string{"result", "tier"},
	)

	paymentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_confirm_duration_ms",
			Help:    "Payment confirmation duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result", "tier"},
	)
)

// RecordPayment records business metrics for a payment confirmation.
// result should be "success", "duplicate" or "fail"; tier is normalized to lower-case.
func RecordPayment(result, tier string, started time.Time) {
	res := result
	if res != "success" && res != "duplicate" {
		res = "fail"
	}
	t := strings.ToLower(tier)
	paymentTotal.WithLabelValues(res, t).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	paymentDuration.WithLabelValues(res, t).Observe(durMs)
}
