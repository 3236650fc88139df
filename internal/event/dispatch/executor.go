package dispatch

import (
	"context"
	"runtime/debug"
	"time"
)

// Executor handles the execution of a single listener call with timing,
// an optional timeout and optional panic recovery.
type Executor struct {
	recover      bool
	timeout      time.Duration
	panicHandler PanicHandler
}

// NewExecutor creates a new executor with the given options.
// By default panics propagate to the caller and no timeout is applied.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		panicHandler: defaultPanicHandler,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRecover makes the executor recover listener panics and report them in
// the Result instead of unwinding the caller.
func WithRecover() ExecutorOption {
	return func(e *Executor) {
		e.recover = true
	}
}

// WithTimeout sets a per-call timeout. The call's context is cancelled when
// it expires; the listener must respect cancellation for this to take effect.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = timeout
	}
}

// WithPanicHandler sets the callback invoked after a recovered panic.
func WithPanicHandler(h PanicHandler) ExecutorOption {
	return func(e *Executor) {
		if h != nil {
			e.panicHandler = h
		}
	}
}

// Execute runs fn and returns the result.
// A context that is already done skips the call.
func (e *Executor) Execute(ctx context.Context, fn Func) (result Result) {
	// Check context before starting
	select {
	case <-ctx.Done():
		return Result{
			Error:   ctx.Err(),
			Skipped: true,
		}
	default:
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()

	if e.recover {
		defer func() {
			result.Duration = time.Since(start)

			if r := recover(); r != nil {
				stack := debug.Stack()

				result.Error = nil
				result.Panicked = true
				result.PanicValue = r
				result.PanicStack = stack

				// Don't let the panic handler itself crash the process
				func() {
					defer func() {
						_ = recover()
					}()
					e.panicHandler(r, stack)
				}()
			}
		}()
	}

	result.Error = fn(ctx)
	result.Duration = time.Since(start)
	return result
}
