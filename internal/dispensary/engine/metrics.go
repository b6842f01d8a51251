package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Checkout modes used as metric labels and in results
const (
	ModeSpecific   = "specific"
	ModeFEFO       = "fefo"
	ModeQuarantine = "quarantine"
)

var (
	checkoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispensary_checkouts_total",
			Help: "Checkout requests by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	unitsDispensedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispensary_units_dispensed_total",
			Help: "Quantity removed from circulation by committed checkouts",
		},
		[]string{"mode"},
	)

	checkoutDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispensary_checkout_duration_seconds",
			Help:    "Checkout latency from planning to commit or rollback",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	checkinsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispensary_checkins_total",
			Help: "Check-in requests by outcome",
		},
		[]string{"outcome"},
	)

	capacityRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispensary_capacity_rejections_total",
			Help: "Check-ins and adjustments refused because the lot would overflow",
		},
	)

	rollbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispensary_rollbacks_total",
			Help: "Plans compensated after a mid-apply failure",
		},
		[]string{"mode"},
	)

	rollbackFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispensary_rollback_failures_total",
			Help: "Compensation steps that failed and need manual reconciliation",
		},
	)
)

func init() {
	prometheus.MustRegister(
		checkoutsTotal,
		unitsDispensedTotal,
		checkoutDuration,
		checkinsTotal,
		capacityRejectionsTotal,
		rollbacksTotal,
		rollbackFailuresTotal,
	)
}

// outcomeOf buckets an error into a low-cardinality label
func outcomeOf(err error) string {
	if err == nil {
		return "committed"
	}
	return errorKind(err)
}
