// Package dispatch runs individual listener calls for the event dispatcher.
//
// The Executor wraps one invocation with timing, an optional per-call timeout
// and optional panic recovery. Ordering, stop propagation and error handling
// across listeners belong to the event package; this package only knows how
// to run one call and describe its outcome.
//
// # Panic Recovery
//
// Panics propagate by default, the same as any other Go call. With
// WithRecover the executor recovers the panic, reports it in the Result and
// calls the configured PanicHandler:
//
//	exec := dispatch.NewExecutor(
//	    dispatch.WithRecover(),
//	    dispatch.WithPanicHandler(func(v any, stack []byte) {
//	        log.Printf("panic in listener: %v\n%s", v, stack)
//	    }),
//	)
//	result := exec.Execute(ctx, func(ctx context.Context) error {
//	    return listener.Handle(ctx, e)
//	})
//
// # Context Support
//
// A context that is already done skips the call and reports Skipped with the
// context error.
package dispatch
