package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(ledgerCacheLookups, ledgerPoolConns) }

var (
	ledgerCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "cache_lookups_total",
		Help:      "Job ledger cache lookups by outcome (hit or miss).",
	}, []string{"outcome"})

	ledgerPoolConns = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "pool_connections",
		Help:      "Postgres ledger pool connections by state.",
	}, []string{"state"})
)

func IncLedgerCache(outcome string) {
	ledgerCacheLookups.WithLabelValues(norm(outcome)).Inc()
}

// SetLedgerPool publishes a pool snapshot.
func SetLedgerPool(total, idle, acquired int32) {
	for state, v := range map[string]int32{"total": total, "idle": idle, "acquired": acquired} {
		ledgerPoolConns.WithLabelValues(state).Set(float64(v))
	}
}
