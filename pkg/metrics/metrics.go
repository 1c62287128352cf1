package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Engine metrics
	TablesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "graphstore_tables_total",
			Help: "Total number of tables in the catalog",
		},
	)

	ActiveTransactions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "graphstore_active_transactions",
			Help: "Number of in-flight transactions",
		},
	)

	CommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphstore_commits_total",
			Help: "Total number of committed transactions by strategy",
		},
		[]string{"strategy"},
	)

	RollbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphstore_rollbacks_total",
			Help: "Total number of rolled back transactions by strategy",
		},
		[]string{"strategy"},
	)

	ConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphstore_conflicts_total",
			Help: "Total number of concurrency conflicts (KeyLocked / StaleData) by strategy",
		},
		[]string{"strategy"},
	)

	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphstore_operations_total",
			Help: "Total number of engine operations by type",
		},
		[]string{"op"},
	)
)

// Register registers all metrics with the given registry.
// Pass prometheus.DefaultRegisterer for the common case.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		TablesTotal,
		ActiveTransactions,
		CommitsTotal,
		RollbacksTotal,
		ConflictsTotal,
		OperationsTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			// Already-registered collectors are fine (tests re-init engines)
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}
