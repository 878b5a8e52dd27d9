// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcoin_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tcoin_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	LedgerTransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcoin_ledger_transactions_total",
			Help: "Committed ledger transactions",
		},
		[]string{"type"},
	)

	RedemptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcoin_voucher_redemptions_total",
			Help: "Voucher redemption attempts by outcome and voucher kind",
		},
		[]string{"outcome", "kind"},
	)

	ForgeryAttemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tcoin_voucher_forgery_attempts_total",
			Help: "Voucher codes that failed authentication",
		},
	)

	ReconcileMismatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tcoin_ledger_reconcile_mismatches_total",
			Help: "Wallets found with a balance that disagrees with their history",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordTransaction(txType string) {
	LedgerTransactionsTotal.WithLabelValues(txType).Inc()
}

// RecordRedemption counts one attempt. kind is "registered", "encoded" or
// "unknown" when the code never resolved to a voucher.
func RecordRedemption(outcome, kind string) {
	RedemptionsTotal.WithLabelValues(outcome, kind).Inc()
}

func RecordForgeryAttempt() {
	ForgeryAttemptsTotal.Inc()
}

func RecordReconcileMismatches(n int) {
	ReconcileMismatchesTotal.Add(float64(n))
}
