// Package metrics provides Prometheus metrics collection for quotagate.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for quotagate.
type Collector struct {
	// Ledger metrics
	ConsumeTotal *prometheus.CounterVec // result: success, limit_exhausted, contention, error
	RefundsTotal prometheus.Counter
	PlanChanges  *prometheus.CounterVec

	// Store metrics
	StoreErrors *prometheus.CounterVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
}

// New creates a new metrics collector with all metrics registered
// on the default registry.
func New() *Collector {
	return newWith(prometheus.DefaultRegisterer)
}

// NewWith creates a collector registered on a custom registry (for tests).
func NewWith(reg prometheus.Registerer) *Collector {
	return newWith(reg)
}

func newWith(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		ConsumeTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "quotagate",
				Name:      "consume_total",
				Help:      "Consumption attempts by outcome",
			},
			[]string{"result", "plan"},
		),
		RefundsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "quotagate",
				Name:      "refunds_total",
				Help:      "Total refunds applied",
			},
		),
		PlanChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "quotagate",
				Name:      "plan_changes_total",
				Help:      "Plan transitions by target plan",
			},
			[]string{"plan"},
		),
		StoreErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "quotagate",
				Name:      "store_errors_total",
				Help:      "Backing store failures by operation",
			},
			[]string{"op"},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "quotagate",
				Name:      "config_reloads_total",
				Help:      "Successful configuration reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "quotagate",
				Name:      "config_reload_errors_total",
				Help:      "Failed configuration reloads",
			},
		),
	}
}
