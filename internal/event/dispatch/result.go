package dispatch

import (
	"context"
	"time"
)

// Func is one listener invocation bound to its event.
type Func func(ctx context.Context) error

// Result represents the outcome of a single listener invocation.
type Result struct {
	// Error is the error returned by the listener, if any.
	Error error

	// Panicked is true if the listener panicked and the panic was recovered.
	Panicked bool

	// PanicValue is the value passed to panic(), if Panicked is true.
	PanicValue any

	// PanicStack is the stack trace at the point of panic.
	PanicStack []byte

	// Duration is how long the listener took to execute.
	Duration time.Duration

	// Skipped is true if the listener was not executed (context done).
	Skipped bool
}

// IsSuccess returns true if the listener returned nil without panicking.
func (r Result) IsSuccess() bool {
	return !r.Skipped && !r.Panicked && r.Error == nil
}

// PanicHandler is called after a listener panic has been recovered.
type PanicHandler func(panicValue any, stack []byte)

func defaultPanicHandler(panicValue any, stack []byte) {}
