package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Priority determines listener execution order.
// Lower values execute first. Negative values are allowed.
type Priority int

// PriorityDefault is the priority used when none is given.
const PriorityDefault Priority = 0

// Listener is the interface for event listeners.
//
// Returning nil continues propagation. Returning ErrStopPropagation (or an
// error wrapping it) stops the current dispatch without failing it. Any other
// error aborts the dispatch and is returned to the caller.
type Listener interface {
	Handle(ctx context.Context, e *Event) error
}

// ListenerFunc is a function adapter for Listener.
type ListenerFunc func(ctx context.Context, e *Event) error

// Handle implements the Listener interface.
func (f ListenerFunc) Handle(ctx context.Context, e *Event) error {
	return f(ctx, e)
}

// ListenerRef is the identity under which a listener is registered.
//
// Function values cannot be compared in Go, so the dispatcher never compares
// listeners. It compares refs by pointer: the same *ListenerRef added at two
// priorities is removed from both by one RemoveListener call, while two refs
// wrapping the same function are distinct registrations.
type ListenerRef struct {
	id       string
	listener Listener
}

// NewListenerRef wraps a listener in a new reference.
// Returns nil if l is nil.
func NewListenerRef(l Listener) *ListenerRef {
	if l == nil {
		return nil
	}
	return &ListenerRef{
		id:       uuid.NewString(),
		listener: l,
	}
}

// RefFunc wraps a listener function in a new reference.
func RefFunc(fn ListenerFunc) *ListenerRef {
	if fn == nil {
		return nil
	}
	return NewListenerRef(fn)
}

// ID returns the unique reference identifier.
func (r *ListenerRef) ID() string {
	return r.id
}

// Listener returns the wrapped listener.
func (r *ListenerRef) Listener() Listener {
	return r.listener
}

// Handle implements Listener by forwarding to the wrapped listener.
func (r *ListenerRef) Handle(ctx context.Context, e *Event) error {
	return r.listener.Handle(ctx, e)
}

// PriorityGroup is one priority bucket of an event's listeners.
type PriorityGroup struct {
	Priority  Priority
	Listeners []*ListenerRef
}

// Report describes the outcome of one Dispatch call.
type Report struct {
	// Listeners is the number of listeners registered when dispatch started.
	Listeners int

	// Invoked is the number of listeners actually called.
	Invoked int

	// Stopped is true if a listener stopped propagation.
	Stopped bool

	// Err is the error returned to the caller, if any.
	Err error

	// Duration is the wall time of the dispatch.
	Duration time.Duration
}

// Outcome returns a short label for the report.
func (r Report) Outcome() string {
	switch {
	case r.Err != nil:
		return "failed"
	case r.Stopped:
		return "stopped"
	case r.Listeners == 0:
		return "unhandled"
	default:
		return "completed"
	}
}

// Observer is notified after every Dispatch call.
// Implementations must be safe for concurrent use and must not block.
type Observer interface {
	ObserveDispatch(e *Event, r Report)
}

// Stats contains dispatcher statistics.
type Stats struct {
	// EventsDispatched is the total number of Dispatch calls.
	EventsDispatched uint64

	// EventsUnhandled counts dispatches that found no listeners.
	EventsUnhandled uint64

	// ListenersInvoked is the total number of listener invocations.
	ListenersInvoked uint64

	// PropagationStopped counts dispatches ended by ErrStopPropagation.
	PropagationStopped uint64

	// ListenerErrors counts dispatches aborted by an error, including
	// recovered panics and context cancellation.
	ListenerErrors uint64

	// ListenerPanics counts recovered listener panics.
	ListenerPanics uint64
}
