package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is a named payload passed to listeners.
// Events are immutable once created: Data returns a copy, so a listener
// cannot change what later listeners see.
type Event struct {
	name string
	data map[string]any
	meta Metadata
}

// Metadata contains standard information attached to every event.
type Metadata struct {
	// ID is a unique identifier for this event instance.
	ID string

	// Timestamp is when the event was created.
	Timestamp time.Time

	// Source identifies the producer that created the event.
	Source string
}

// NewEvent creates an event with the given name and payload.
// A nil payload is replaced by an empty map. The payload is copied.
func NewEvent(name string, data map[string]any) *Event {
	return NewEventWithMetadata(name, data, Metadata{})
}

// NewEventWithMetadata creates an event with custom metadata.
// Missing ID and Timestamp are filled in.
func NewEventWithMetadata(name string, data map[string]any, meta Metadata) *Event {
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	return &Event{
		name: name,
		data: cloneMap(data),
		meta: meta,
	}
}

// Name returns the event name listeners are keyed on.
func (e *Event) Name() string {
	return e.name
}

// Data returns a copy of the event payload.
func (e *Event) Data() map[string]any {
	return cloneMap(e.data)
}

// Get returns a copy of a single payload value.
func (e *Event) Get(key string) (any, bool) {
	v, ok := e.data[key]
	if !ok {
		return nil, false
	}
	return cloneValue(v), true
}

// Metadata returns the event metadata.
func (e *Event) Metadata() Metadata {
	return e.meta
}

// Validate reports ErrInvalidEvent for an event without a name.
func (e *Event) Validate() error {
	if e == nil || e.name == "" {
		return ErrInvalidEvent
	}
	return nil
}

// cloneMap creates a deep copy of a payload map. Never returns nil.
func cloneMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = cloneValue(v)
	}
	return dst
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}
