package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/lotledger/internal/domain"
)

// OutboxRepository defines storage for ledger events awaiting publication.
type OutboxRepository interface {
	Create(ctx context.Context, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// MetricsRecorder receives ledger activity for instrumentation.
type MetricsRecorder interface {
	RecordEvent(event domain.LedgerEvent)
	RecordError(operation string, err error)
	SetBalances(balances map[string]decimal.Decimal)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Delete releases a key so the request can be retried.
	Delete(ctx context.Context, key string) error
}
