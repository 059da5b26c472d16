package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the tagging pipeline.
const (
	// TypeWindowReconciled: a window's results were applied to its cards.
	TypeWindowReconciled = "window.reconciled"

	// TypeWindowMismatch: a window's reply did not yield one result per card.
	TypeWindowMismatch = "window.mismatch"

	// TypePartitionCompleted: a deck finished and was handed to write-back.
	TypePartitionCompleted = "partition.completed"

	// TypePartitionFailed: a deck stopped early on a service or write-back failure.
	TypePartitionFailed = "partition.failed"
)

// PipelineEvent reports progress of a tagging run. It carries no references
// to pipeline types so that handlers do not depend on the pipeline package.
type PipelineEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	// Deck names the partition the event belongs to
	Deck string `json:"deck"`

	// Payload contains the type-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// WindowPayload is the payload of window events.
type WindowPayload struct {
	Task     string `json:"task"`
	Window   int    `json:"window"`
	Cards    int    `json:"cards"`
	Expected int    `json:"expected,omitempty"`
	Actual   int    `json:"actual,omitempty"`
}

// PartitionPayload is the payload of partition events.
type PartitionPayload struct {
	Cards      int    `json:"cards"`
	Updated    int    `json:"updated"`
	Windows    int    `json:"windows"`
	Mismatches int    `json:"mismatches"`
	Error      string `json:"error,omitempty"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *PipelineEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewPipelineEvent creates a new PipelineEvent with the specified type and payload.
func NewPipelineEvent(eventType, deck string, payload interface{}) (*PipelineEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &PipelineEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Deck:      deck,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
// Handlers may be invoked concurrently from several workers.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *PipelineEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows the pipeline to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *PipelineEvent) error
}

// HandlerFunc adapts an ordinary function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *PipelineEvent) error

// HandleEvent implements EventHandler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *PipelineEvent) error {
	return f(ctx, event)
}
