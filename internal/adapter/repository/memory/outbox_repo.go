package memory

import (
	"context"
	"sync"
	"time"

	"github.com/iho/lotledger/internal/domain"
)

// OutboxRepository implements usecase.OutboxRepository in process memory.
// Events are kept in insertion order until published and pruned.
type OutboxRepository struct {
	mu     sync.Mutex
	events []*domain.OutboxEvent
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{}
}

// Create appends an event to the outbox.
func (r *OutboxRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored := *event
	r.mu.Lock()
	r.events = append(r.events, &stored)
	r.mu.Unlock()

	return nil
}

// GetUnpublished returns up to limit unpublished events, oldest first.
func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*domain.OutboxEvent
	for _, event := range r.events {
		if limit > 0 && len(result) >= limit {
			break
		}
		if event.Published {
			continue
		}

		copied := *event
		result = append(result, &copied)
	}

	return result, nil
}

// MarkPublished marks an event as published.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, event := range r.events {
		if event.ID == id {
			at := publishedAt
			event.Published = true
			event.PublishedAt = &at
			return nil
		}
	}

	return nil
}

// DeletePublished drops events published before the given time.
func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.events[:0]
	for _, event := range r.events {
		if event.Published && event.PublishedAt != nil && event.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, event)
	}

	for i := len(kept); i < len(r.events); i++ {
		r.events[i] = nil
	}
	r.events = kept

	return nil
}

// Len returns the number of events currently held.
func (r *OutboxRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.events)
}
