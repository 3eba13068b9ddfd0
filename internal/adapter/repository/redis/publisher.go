package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/lotledger/internal/domain"
)

// DefaultEventChannel is the pub/sub channel ledger events are published on.
const DefaultEventChannel = "lotledger:events"

// EventPublisher publishes outbox events to a Redis pub/sub channel.
type EventPublisher struct {
	client  *redis.Client
	channel string
	retrier *Retrier
}

// NewEventPublisher creates a new EventPublisher. An empty channel selects DefaultEventChannel.
func NewEventPublisher(client *redis.Client, channel string, retrier *Retrier) *EventPublisher {
	if channel == "" {
		channel = DefaultEventChannel
	}

	return &EventPublisher{
		client:  client,
		channel: channel,
		retrier: retrier,
	}
}

// EventMessage is the JSON document published for each event.
type EventMessage struct {
	ID            string         `json:"id"`
	EventType     string         `json:"event_type"`
	AggregateType string         `json:"aggregate_type"`
	AggregateID   string         `json:"aggregate_id"`
	Payload       map[string]any `json:"payload"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Publish sends the event to the channel.
func (p *EventPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	body, err := json.Marshal(EventMessage{
		ID:            event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		CreatedAt:     event.CreatedAt,
	})
	if err != nil {
		return err
	}

	publish := func() error {
		return p.client.Publish(ctx, p.channel, body).Err()
	}

	if p.retrier == nil {
		return publish()
	}

	return p.retrier.Retry(ctx, publish)
}
