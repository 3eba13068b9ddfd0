package usecase

import "time"

const (
	// OutboxWriteTimeout bounds how long a mutation waits to record its event.
	OutboxWriteTimeout = 5 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// Operation names used for logging and metrics
	OperationDeposit    = "deposit"
	OperationWithdrawal = "withdrawal"
	OperationConversion = "conversion"
)
