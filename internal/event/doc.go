// Package event provides the in-process event dispatcher for evdispatch.
//
// Listeners register against an event name with a priority. When an event is
// dispatched, the listeners registered for its name run one after another on
// the caller's goroutine: lower priorities first, and in registration order
// within a priority. Any listener can stop propagation for that call.
//
// # Architecture
//
//	          ┌───────────────────────────────┐
//	          │          Dispatcher           │
//	          │  - AddListener / Remove       │
//	          │  - Dispatch (snapshot, stop)  │
//	          └───────────────────────────────┘
//	                 │                  │
//	                 ▼                  ▼
//	┌─────────────────────┐   ┌─────────────────────┐
//	│      Registry       │   │  dispatch.Executor  │
//	│  name → priority →  │   │  - timing, timeout  │
//	│  ordered refs       │   │  - panic recovery   │
//	└─────────────────────┘   └─────────────────────┘
//
// # Listener Identity
//
// Go function values are not comparable, so listeners are registered through
// a *ListenerRef. The ref is the identity: removing it removes it from every
// priority it was added at.
//
//	ref := event.RefFunc(func(ctx context.Context, e *event.Event) error {
//	    fmt.Println("got", e.Name())
//	    return nil
//	})
//	d.AddListener("user.registered", ref, event.WithPriority(-10))
//	d.RemoveListener("user.registered", ref)
//
// # Stopping Propagation
//
// A listener returns ErrStopPropagation to skip every listener after it.
// Dispatch treats this as success. Any other error aborts the dispatch and
// is returned wrapped in a *ListenerError.
//
// # Basic Usage
//
//	d := event.NewDispatcher(event.WithLogger(logger))
//	d.On("user.registered", sendWelcomeEmail)
//
//	e := event.NewEvent("user.registered", map[string]any{
//	    "email": "john@example.com",
//	})
//	if _, err := d.Dispatch(ctx, e); err != nil {
//	    return err
//	}
//
// # Thread Safety
//
// Dispatcher, Registry, Holder and ListenerProvider are safe for concurrent
// use. Listeners of one dispatch never run concurrently with each other;
// listeners reached from concurrent Dispatch calls must manage their own
// thread safety.
//
// # Subpackages
//
//   - dispatch: execution of a single listener call
package event
