package eventpublisher

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/lotledger/internal/adapter/repository/memory"
	"github.com/iho/lotledger/internal/domain"
)

func TestProcessEventsPublishesAndMarks(t *testing.T) {
	repo := seededOutbox(t, "evt-1")
	pub := &stubPublisher{}
	ep := newTestPublisher(repo, pub)

	if err := ep.processEvents(context.Background()); err != nil {
		t.Fatalf("processEvents failed: %v", err)
	}

	if len(pub.published) != 1 {
		t.Fatalf("expected one published event, got %d", len(pub.published))
	}

	pending, _ := repo.GetUnpublished(context.Background(), 10)
	if len(pending) != 0 {
		t.Fatalf("expected event to be marked published, %d still pending", len(pending))
	}
}

func TestProcessEventsContinuesOnPublishError(t *testing.T) {
	repo := seededOutbox(t, "evt-1", "evt-2")
	pub := &stubPublisher{
		errorsByID: map[string]error{"evt-1": errors.New("fail")},
	}
	ep := newTestPublisher(repo, pub)

	if err := ep.processEvents(context.Background()); err != nil {
		t.Fatalf("processEvents returned error: %v", err)
	}

	if len(pub.published) != 1 || pub.published[0].ID != "evt-2" {
		t.Fatalf("expected only evt-2 to be published, got %#v", pub.published)
	}

	pending, _ := repo.GetUnpublished(context.Background(), 10)
	if len(pending) != 1 || pending[0].ID != "evt-1" {
		t.Fatalf("expected evt-1 to stay pending, got %#v", pending)
	}
}

func TestProcessEventsPrunesPublished(t *testing.T) {
	repo := seededOutbox(t, "evt-1")
	ep := newTestPublisher(repo, &stubPublisher{})
	ep.retention = time.Nanosecond

	if err := ep.processEvents(context.Background()); err != nil {
		t.Fatalf("processEvents failed: %v", err)
	}
	time.Sleep(time.Millisecond)
	if err := ep.processEvents(context.Background()); err != nil {
		t.Fatalf("processEvents failed: %v", err)
	}

	if repo.Len() != 0 {
		t.Fatalf("expected published event to be pruned, %d left", repo.Len())
	}
}

func TestFlushDrainsAllBatches(t *testing.T) {
	repo := seededOutbox(t, "a", "b", "c", "d", "e")
	pub := &stubPublisher{}
	ep := newTestPublisher(repo, pub)
	ep.batchSize = 2

	if err := ep.Flush(context.Background()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	if len(pub.published) != 5 {
		t.Fatalf("expected 5 published events, got %d", len(pub.published))
	}
}

func TestFlushStopsWhenNothingPublishes(t *testing.T) {
	repo := seededOutbox(t, "a")
	pub := &stubPublisher{errorsByID: map[string]error{"a": errors.New("down")}}
	ep := newTestPublisher(repo, pub)

	if err := ep.Flush(context.Background()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
}

func TestStartStopsOnContextCancellation(t *testing.T) {
	repo := memory.NewOutboxRepository()
	pub := &stubPublisher{}
	ep := newTestPublisher(repo, pub)
	ep.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ep.Start(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop after cancel")
	}
}

func TestLogPublisherWritesPayload(t *testing.T) {
	var buf bytes.Buffer
	pub := NewLogPublisher(zerolog.New(&buf))

	err := pub.Publish(context.Background(), &domain.OutboxEvent{
		ID:          "evt-1",
		EventType:   domain.EventTypeDeposit,
		AggregateID: "USDT",
		Payload:     map[string]any{"amount": "100"},
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"payload":{"amount":"100"}`) || !strings.Contains(out, "ledger.deposit") {
		t.Fatalf("unexpected log line: %s", out)
	}
}

func newTestPublisher(repo *memory.OutboxRepository, pub *stubPublisher) *EventPublisher {
	return NewEventPublisher(Config{
		OutboxRepo: repo,
		Publisher:  pub,
		Logger:     zerolog.Nop(),
		BatchSize:  10,
		Interval:   5 * time.Millisecond,
	})
}

func seededOutbox(t *testing.T, ids ...string) *memory.OutboxRepository {
	t.Helper()

	repo := memory.NewOutboxRepository()
	for _, id := range ids {
		err := repo.Create(context.Background(), &domain.OutboxEvent{
			ID:        id,
			EventType: domain.EventTypeDeposit,
			CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("seed outbox: %v", err)
		}
	}

	return repo
}

type stubPublisher struct {
	published  []*domain.OutboxEvent
	errorsByID map[string]error
}

func (s *stubPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	if err := s.errorsByID[event.ID]; err != nil {
		return err
	}
	s.published = append(s.published, event)
	return nil
}
