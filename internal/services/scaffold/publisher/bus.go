// Package publisher delivers journal events to downstream services.
package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/skafu/skafu/internal/services/scaffold/domain/event"
)

// Envelope is the wire format published to the event bus.
type Envelope struct {
	EventID       string          `json:"event_id"`
	ProjectID     string          `json:"project_id"`
	Seq           uint64          `json:"seq"`
	Type          string          `json:"type"`
	SchemaVersion string          `json:"schema_version"`
	Timestamp     time.Time       `json:"timestamp"`
	ActorID       string          `json:"actor_id,omitempty"`
	RequestID     string          `json:"request_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	CausationID   string          `json:"causation_id,omitempty"`
	EntityType    string          `json:"entity_type,omitempty"`
	EntityID      string          `json:"entity_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// Bus publishes event envelopes to subscribers.
type Bus interface {
	Publish(ctx context.Context, envelope Envelope) error
	Close() error
}

// NewEnvelope maps a journal event to its published form.
func NewEnvelope(evt event.Event) Envelope {
	return Envelope{
		EventID:       evt.EventID,
		ProjectID:     evt.ProjectID,
		Seq:           evt.Seq,
		Type:          string(evt.Type),
		SchemaVersion: evt.SchemaVersion,
		Timestamp:     evt.Timestamp,
		ActorID:       evt.ActorID,
		RequestID:     evt.RequestID,
		CorrelationID: evt.CorrelationID,
		CausationID:   evt.CausationID,
		EntityType:    evt.EntityType,
		EntityID:      evt.EntityID,
		Payload:       json.RawMessage(evt.PayloadJSON),
	}
}
