package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Outcome is how a generation request ended.
type Outcome string

// Request outcomes.
const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// GenerationEvent records one finished generation request.
type GenerationEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Kind is the content type, e.g. "notes" or "practice_test"
	Kind string `json:"kind"`

	// CacheKey is empty for requests that are never cached
	CacheKey string `json:"cache_key,omitempty"`
	CacheHit bool   `json:"cache_hit"`

	// Cached reports whether the response was written to the cache
	Cached bool `json:"cached"`

	Outcome Outcome `json:"outcome"`

	// ErrorKind is the generation.Kind name for failed requests
	ErrorKind string `json:"error_kind,omitempty"`

	Chunks   int           `json:"chunks"`
	Bytes    int           `json:"bytes"`
	Duration time.Duration `json:"duration"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewGenerationEvent creates an event for a request of the given kind.
func NewGenerationEvent(kind, cacheKey string) *GenerationEvent {
	return &GenerationEvent{
		ID:        uuid.New(),
		Kind:      kind,
		CacheKey:  cacheKey,
		CreatedAt: time.Now(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *GenerationEvent) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *GenerationEvent) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *GenerationEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *GenerationEvent) error
}

// Discard is an EventEmitter that drops every event.
var Discard EventEmitter = discard{}

type discard struct{}

func (discard) EmitEvent(context.Context, *GenerationEvent) error { return nil }
