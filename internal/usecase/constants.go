package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// ReferencePrefix prefixes human-readable entry references.
	ReferencePrefix = "TX-"

	// DefaultSweepBatchSize bounds one reconciliation sweep.
	DefaultSweepBatchSize = 500
)
