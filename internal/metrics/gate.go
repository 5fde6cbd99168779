package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_add_total",
			Help: "Total gate additions by result and billing",
		},
		[]string{"result", "billing"},
	)

	membershipCheckTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_check_total",
			Help: "Total channel membership checks by result",
		},
		[]string{"result"},
	)
)

// RecordGateAdd records a gate addition.
// billing is "subscription" when covered by an active subscription, "credit" when one
// credit was consumed; result is "success", "entitlement_required" or "fail".
func RecordGateAdd(result, billing string, started time.Time) {
	_ = started
	gateTotal.WithLabelValues(result, billing).Inc()
}

// RecordMembershipCheck records a gateway membership probe.
// result is "member", "not_member" or "error".
func RecordMembershipCheck(result string) {
	membershipCheckTotal.WithLabelValues(result).Inc()
}
