package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is a domain event as delivered to notifiers.
type Event struct {
	ID          uuid.UUID       `json:"id"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// EventStore persists emitted events. It is optional.
type EventStore interface {
	InsertDomainEvent(ctx context.Context, event Event) error
}

// Notifier reacts to emitted events (e.g. receipts, metrics).
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event Event) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, event Event) error { return f(ctx, event) }

// Bus records domain events and fans them out to downstream handlers.
type Bus struct {
	Store     EventStore
	Notifiers []Notifier
	Now       func() time.Time
}

// Emit records the event and dispatches it to all configured notifiers.
// Notifier failures are joined and returned after every notifier ran.
func (b *Bus) Emit(ctx context.Context, topic, aggregateID string, payload any) (Event, error) {
	if b == nil {
		return Event{}, errors.New("events: bus not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Event{}, errors.New("events: topic is required")
	}
	if strings.TrimSpace(aggregateID) == "" {
		return Event{}, errors.New("events: aggregate id is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return Event{}, fmt.Errorf("events: encode payload: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Event{}, fmt.Errorf("events: generate id: %w", err)
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	ev := Event{
		ID:          id,
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     encoded,
		OccurredAt:  now().UTC(),
	}
	if b.Store != nil {
		if err := b.Store.InsertDomainEvent(ctx, ev); err != nil {
			return Event{}, fmt.Errorf("events: persist event: %w", err)
		}
	}
	var joined error
	for _, notifier := range b.Notifiers {
		if notifier == nil {
			continue
		}
		if notifyErr := notifier.Notify(ctx, ev); notifyErr != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notifier: %w", notifyErr))
		}
	}
	return ev, joined
}

func encodePayload(payload any) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	switch v := payload.(type) {
	case []byte:
		return validJSON(v)
	case json.RawMessage:
		return validJSON(v)
	case string:
		if strings.TrimSpace(v) == "" {
			return []byte("{}"), nil
		}
		return validJSON([]byte(v))
	default:
		return json.Marshal(v)
	}
}

func validJSON(v []byte) ([]byte, error) {
	if len(v) == 0 {
		return []byte("{}"), nil
	}
	if !json.Valid(v) {
		return nil, errors.New("payload is not valid json")
	}
	return append([]byte(nil), v...), nil
}
