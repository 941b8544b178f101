package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for monitoring
var (
	AccountsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zora_runner_accounts_processed_total",
		Help: "The total number of processed accounts by terminal status",
	}, []string{"status"})

	AccountsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zora_runner_accounts_skipped_total",
		Help: "The total number of accounts skipped before running",
	}, []string{"reason"})

	AccountProcessingTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "zora_runner_account_processing_seconds",
		Help:    "Time taken to run the workflow of one account",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12), // Start at 1s with 12 buckets doubling in size
	})

	TransactionsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zora_runner_transactions_sent_total",
		Help: "The total number of broadcast transactions",
	}, []string{"chain", "action"})

	TransactionsConfirmed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zora_runner_transactions_confirmed_total",
		Help: "The total number of transactions with a receipt or a timeout, by result",
	}, []string{"chain", "result"})

	GasUsed = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zora_runner_gas_used",
		Help:    "Gas used by confirmed transactions",
		Buckets: prometheus.ExponentialBuckets(21000, 2, 10), // Start at 21000 with 10 buckets doubling in size
	}, []string{"chain"})

	GasPrice = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zora_runner_gas_price_gwei",
		Help: "Last observed gas price in gwei",
	}, []string{"chain"})

	RetryCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zora_runner_retry_count_total",
		Help: "The total number of retried workflow operations",
	}, []string{"operation"})

	BridgesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zora_runner_auto_bridges_total",
		Help: "Number of bridges started because the mint could not be paid for",
	})

	CircuitBreakerTrips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zora_runner_circuit_breaker_trips_total",
		Help: "Number of times the batch paused after too many failed accounts",
	})

	NotificationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zora_runner_notification_errors_total",
		Help: "Number of notification messages that could not be delivered",
	})
)
