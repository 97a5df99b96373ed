package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the custody service collectors.
	Registry = prometheus.NewRegistry()

	deposits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "custody",
			Subsystem: "deposit",
			Name:      "records_total",
			Help:      "Total number of recordDeposit calls by result.",
		},
		[]string{"result"},
	)

	withdrawals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "custody",
			Subsystem: "withdraw",
			Name:      "requests_total",
			Help:      "Total number of withdrawals by result.",
		},
		[]string{"result"},
	)

	transfers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "custody",
			Subsystem: "transfer",
			Name:      "requests_total",
			Help:      "Total number of custodian transfers by result.",
		},
		[]string{"result"},
	)

	transferLogFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "custody",
			Subsystem: "transfer",
			Name:      "log_failures_total",
			Help:      "Custodian transfers that settled on the ledger but could not be written to the audit log.",
		},
	)

	ledgerCalls = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "custody",
			Subsystem: "ledger",
			Name:      "call_duration_seconds",
			Help:      "Duration of calls to the external ledger.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"method", "outcome"},
	)

	pots = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "custody",
			Subsystem: "pot",
			Name:      "amount",
			Help:      "Current pot amount in smallest token units.",
		},
		[]string{"pot"},
	)
)

func init() {
	Registry.MustRegister(deposits, withdrawals, transfers, transferLogFailures, ledgerCalls, pots)
}

// Handler exposes the registry over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordDeposit counts a recordDeposit outcome ("ok" or the rejection reason).
func RecordDeposit(result string) {
	deposits.WithLabelValues(result).Inc()
}

// RecordWithdraw counts a withdrawal outcome.
func RecordWithdraw(result string) {
	withdrawals.WithLabelValues(result).Inc()
}

// RecordTransfer counts a custodian transfer outcome.
func RecordTransfer(result string) {
	transfers.WithLabelValues(result).Inc()
}

// RecordTransferLogFailure counts a settled transfer missing from the audit log.
func RecordTransferLogFailure() {
	transferLogFailures.Inc()
}

// ObserveLedgerCall records the latency of one ledger call.
func ObserveLedgerCall(method, outcome string, started time.Time) {
	ledgerCalls.WithLabelValues(method, outcome).Observe(time.Since(started).Seconds())
}

// SetPot publishes the current value of a pot.
func SetPot(pot string, amount uint64) {
	pots.WithLabelValues(pot).Set(float64(amount))
}
