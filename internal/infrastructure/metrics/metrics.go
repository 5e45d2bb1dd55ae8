// Package metrics exposes engine outcome counters over Prometheus. Counters
// are registered on the default registry and served at /metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
)

var transactionsCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ledger_transactions_committed_total",
	Help: "Transactions committed, by transaction type.",
}, []string{"type"})

var transactionsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ledger_transactions_failed_total",
	Help: "Transactions that failed after all retries, by type and error code.",
}, []string{"type", "error_code"})

var replansRetried = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ledger_replans_total",
	Help: "Plans rebuilt after an optimistic concurrency conflict, by type.",
}, []string{"type"})

var compensations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ledger_compensations_total",
	Help: "Processor compensation attempts, by outcome (refunded, irrecoverable).",
}, []string{"outcome"})

// Recorder implements the engine's metrics collaborator on Prometheus.
type Recorder struct{}

// NewRecorder creates a Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// TransactionCommitted counts a successful commit.
func (Recorder) TransactionCommitted(transactionType entity.TransactionType) {
	transactionsCommitted.WithLabelValues(string(transactionType)).Inc()
}

// TransactionFailed counts a terminal failure.
func (Recorder) TransactionFailed(transactionType entity.TransactionType, errorCode int) {
	transactionsFailed.WithLabelValues(string(transactionType), strconv.Itoa(errorCode)).Inc()
}

// ReplanRetried counts a rebuild after a detected conflict.
func (Recorder) ReplanRetried(transactionType entity.TransactionType) {
	replansRetried.WithLabelValues(string(transactionType)).Inc()
}

// CompensationAttempted counts a compensating refund attempt.
func (Recorder) CompensationAttempted(outcome string) {
	compensations.WithLabelValues(outcome).Inc()
}
