package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Lnando2k21/projetofinal/pkg/logger"
)

// EnvelopeVersion is the envelope schema this service writes and the newest
// one it accepts.
const EnvelopeVersion = 1

// Metadata keys stamped from the request context.
const (
	MetadataActorID   = "actor_id"
	MetadataActorRole = "actor_role"
)

// ErrInvalidEnvelope marks a decoded message that is not a usable event.
var ErrInvalidEnvelope = errors.New("invalid event envelope")

// Event is the envelope shared by conectabairro services. EventType carries
// the full topic name (e.g. conectabairro.review.created) and AggregateID is
// the partition key.
type Event struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	AggregateID   string            `json:"aggregate_id"`
	AggregateType string            `json:"aggregate_type"`
	Version       int               `json:"version"`
	Timestamp     time.Time         `json:"timestamp"`
	Source        string            `json:"source"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Data          json.RawMessage   `json:"data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewEvent wraps data in an envelope with a fresh ID and timestamp.
func NewEvent(eventType, aggregateID, aggregateType, source string, data any) (*Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	return &Event{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Version:       EnvelopeVersion,
		Timestamp:     time.Now().UTC(),
		Source:        source,
		Data:          payload,
	}, nil
}

// Stamp copies the correlation ID and the acting user from ctx onto e.
func (e *Event) Stamp(ctx context.Context) *Event {
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		e.WithCorrelationID(id)
	}
	if id, role := logger.ActorFromContext(ctx); id != "" {
		e.WithMetadata(MetadataActorID, id)
		if role != "" {
			e.WithMetadata(MetadataActorRole, role)
		}
	}
	return e
}

// WithCorrelationID sets the correlation ID and returns e for chaining.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// WithMetadata adds a metadata entry and returns e for chaining.
func (e *Event) WithMetadata(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// ActorID returns the user who caused the event, if recorded.
func (e *Event) ActorID() string {
	return e.Metadata[MetadataActorID]
}

// Validate rejects envelopes missing routing fields or written by a newer
// schema.
func (e *Event) Validate() error {
	switch {
	case e.EventID == "":
		return fmt.Errorf("%w: missing event_id", ErrInvalidEnvelope)
	case e.EventType == "":
		return fmt.Errorf("%w: missing event_type", ErrInvalidEnvelope)
	case e.AggregateID == "":
		return fmt.Errorf("%w: missing aggregate_id", ErrInvalidEnvelope)
	case e.Version < 1 || e.Version > EnvelopeVersion:
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidEnvelope, e.Version)
	}
	return nil
}

// Marshal serializes the event to JSON.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEvent decodes and validates an envelope.
func UnmarshalEvent(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return &event, nil
}

// UnmarshalData decodes the payload into target.
func (e *Event) UnmarshalData(target any) error {
	return json.Unmarshal(e.Data, target)
}
