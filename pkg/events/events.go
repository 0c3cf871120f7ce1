// Package events publishes identity changes for downstream consumers
package events

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Type names an identity event
type Type string

const (
	PlayerMatched Type = "player.matched"
	PlayerCreated Type = "player.created"
	LinkQueued    Type = "link.queued"
	LinkApproved  Type = "link.approved"
	LinkRejected  Type = "link.rejected"
)

// Event is the payload written to the identity events topic
type Event struct {
	ID            string             `json:"id"`
	Type          Type               `json:"type"`
	PlayerID      string             `json:"player_id,omitempty"`
	PendingLinkID string             `json:"pending_link_id,omitempty"`
	ReportID      string             `json:"report_id,omitempty"`
	Method        models.MatchMethod `json:"method,omitempty"`
	Confidence    float64            `json:"confidence,omitempty"`
	Reviewer      string             `json:"reviewer,omitempty"`
	Timestamp     time.Time          `json:"timestamp"`
	Version       string             `json:"version"`
}

// Key partitions events by the identity they concern
func (e *Event) Key() string {
	if e.PlayerID != "" {
		return e.PlayerID
	}
	return e.PendingLinkID
}

// Emitter publishes events. Emission failures never undo the change that produced the event.
type Emitter interface {
	Emit(ctx context.Context, event *Event)
}

// Publisher is the transport behind KafkaEmitter
type Publisher interface {
	Publish(ctx context.Context, key, eventType string, value any) error
}

// KafkaEmitter writes events through a Kafka producer
type KafkaEmitter struct {
	publisher Publisher
	logger    ectologger.Logger
}

// NewKafkaEmitter creates a new KafkaEmitter
func NewKafkaEmitter(publisher Publisher, logger ectologger.Logger) *KafkaEmitter {
	return &KafkaEmitter{
		publisher: publisher,
		logger:    logger,
	}
}

// Emit stamps and publishes the event, logging failures
func (k *KafkaEmitter) Emit(ctx context.Context, event *Event) {
	ctx, span := tracing.StartSpan(ctx, "events.KafkaEmitter.Emit")
	defer span.End()

	stamp(event)
	if err := k.publisher.Publish(ctx, event.Key(), string(event.Type), event); err != nil {
		k.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": event.Type,
			"event_id":   event.ID,
		}).Warn("Failed to emit identity event")
	}
}

// Noop discards events
type Noop struct{}

func (Noop) Emit(context.Context, *Event) {}

// Recorder keeps events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(_ context.Context, event *Event) {
	stamp(event)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events with the given type
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func stamp(event *Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Version == "" {
		event.Version = SchemaVersion
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
}
