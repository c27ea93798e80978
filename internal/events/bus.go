package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is an emitted domain fact.
type Event struct {
	ID          string          `json:"id"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId,omitempty"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// Notifier reacts to emitted events (logs, brokers, etc.).
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Emitter is what domain services depend on. Publishing never fails the caller.
type Emitter interface {
	Publish(ctx context.Context, topic, aggregateID string, payload any)
}

// Nop discards every event.
type Nop struct{}

// Publish implements Emitter.
func (Nop) Publish(context.Context, string, string, any) {}

// Bus builds events and fans them out to notifiers.
type Bus struct {
	Notifiers []Notifier
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Emit builds the event and dispatches it to every notifier, joining notifier errors.
func (b *Bus) Emit(ctx context.Context, topic, aggregateID string, payload any) (Event, error) {
	if b == nil {
		return Event{}, errors.New("events: bus not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Event{}, errors.New("events: topic is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return Event{}, fmt.Errorf("events: encode payload: %w", err)
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	ev := Event{
		ID:          uuid.NewString(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     encoded,
		OccurredAt:  now().UTC(),
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

// Publish implements Emitter. Failures are logged.
func (b *Bus) Publish(ctx context.Context, topic, aggregateID string, payload any) {
	if b == nil {
		return
	}
	if ev, err := b.Emit(ctx, topic, aggregateID, payload); err != nil {
		b.Logger.Warn().Err(err).Str("topic", topic).Str("event_id", ev.ID).Msg("event_publish_failed")
	}
}

func encodePayload(payload any) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	switch v := payload.(type) {
	case []byte:
		return rawJSON(v)
	case json.RawMessage:
		return rawJSON(v)
	case string:
		return rawJSON([]byte(strings.TrimSpace(v)))
	default:
		return json.Marshal(v)
	}
}

func rawJSON(v []byte) ([]byte, error) {
	if len(v) == 0 {
		return []byte("{}"), nil
	}
	if !json.Valid(v) {
		return nil, errors.New("payload is not valid json")
	}
	return append([]byte(nil), v...), nil
}
