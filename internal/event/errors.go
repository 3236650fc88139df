package event

import (
	"errors"
	"fmt"
)

// Sentinel errors for the dispatcher.
var (
	// ErrStopPropagation is returned by a listener to stop the current
	// dispatch. It is not reported as a failure: Dispatch returns a nil error.
	ErrStopPropagation = errors.New("stop propagation")

	// ErrNilListener is returned when a nil listener is registered.
	ErrNilListener = errors.New("listener cannot be nil")

	// ErrInvalidEvent is returned for a nil event, or for an event without a
	// name when the dispatcher requires names.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrListenerPanic is matched by PanicError via errors.Is.
	ErrListenerPanic = errors.New("listener panicked")
)

// ListenerError wraps an error returned by a listener with the dispatch
// position it failed at.
type ListenerError struct {
	// Event is the name of the event being dispatched.
	Event string

	// ListenerID is the ID of the failing listener reference.
	ListenerID string

	// Priority is the priority group the listener was invoked from.
	Priority Priority

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener %s (priority %d) failed on event %q: %v", e.ListenerID, e.Priority, e.Event, e.Err)
}

// Unwrap returns the underlying error.
func (e *ListenerError) Unwrap() error {
	return e.Err
}

// PanicError wraps a recovered listener panic.
// It is only produced by dispatchers built with WithRecover.
type PanicError struct {
	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("listener panic: %v", e.Value)
}

// Is allows errors.Is to match PanicError with ErrListenerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrListenerPanic
}

// isStop reports whether err asks the dispatcher to stop propagation.
func isStop(err error) bool {
	return errors.Is(err, ErrStopPropagation)
}
