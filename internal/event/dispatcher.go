package event

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/evdispatch/internal/event/dispatch"
)

// Dispatcher invokes the listeners registered for an event's name in
// ascending priority order, and in registration order within a priority.
//
// A Dispatcher is safe for concurrent use. Dispatch works on a snapshot of the
// listeners taken when the call starts: listeners added or removed while a
// dispatch is running, including by the running listeners themselves, take
// effect on the next Dispatch.
type Dispatcher struct {
	registry *Registry
	executor *dispatch.Executor
	config   dispatcherConfig
	log      zerolog.Logger

	// Stats
	dispatched atomic.Uint64
	unhandled  atomic.Uint64
	invoked    atomic.Uint64
	stopped    atomic.Uint64
	failed     atomic.Uint64
	panicked   atomic.Uint64
}

// NewDispatcher creates a dispatcher with an empty registry.
func NewDispatcher(opts ...Option) *Dispatcher {
	config := defaultDispatcherConfig()
	for _, opt := range opts {
		opt(&config)
	}

	d := &Dispatcher{
		registry: NewRegistry(),
		config:   config,
		log:      config.logger.With().Str("component", "dispatcher").Logger(),
	}

	execOpts := []dispatch.ExecutorOption{
		dispatch.WithTimeout(config.listenerTimeout),
	}
	if config.recover {
		execOpts = append(execOpts,
			dispatch.WithRecover(),
			dispatch.WithPanicHandler(func(v any, stack []byte) {
				d.log.Error().Interface("panic", v).Bytes("stack", stack).Msg("listener panicked")
			}),
		)
	}
	d.executor = dispatch.NewExecutor(execOpts...)

	return d
}

// AddListener registers ref for the named event.
// The default priority is 0; use WithPriority to change it.
func (d *Dispatcher) AddListener(name string, ref *ListenerRef, opts ...ListenerOption) error {
	if ref == nil || ref.listener == nil {
		return ErrNilListener
	}

	lc := newListenerConfig(opts)
	d.registry.Add(name, ref, lc.priority)

	d.log.Debug().
		Str("event", name).
		Str("listener", ref.ID()).
		Int("priority", int(lc.priority)).
		Msg("listener added")
	return nil
}

// On registers fn for the named event and returns its reference, which can
// be passed to RemoveListener.
func (d *Dispatcher) On(name string, fn ListenerFunc, opts ...ListenerOption) (*ListenerRef, error) {
	ref := RefFunc(fn)
	if err := d.AddListener(name, ref, opts...); err != nil {
		return nil, err
	}
	return ref, nil
}

// RemoveListener removes ref from every priority group of the named event.
// Unknown names and refs are ignored. Returns true if anything was removed.
func (d *Dispatcher) RemoveListener(name string, ref *ListenerRef) bool {
	n := d.registry.Remove(name, ref)
	if n > 0 {
		d.log.Debug().
			Str("event", name).
			Str("listener", ref.ID()).
			Int("removed", n).
			Msg("listener removed")
	}
	return n > 0
}

// HasListeners returns true if at least one listener is registered for name.
func (d *Dispatcher) HasListeners(name string) bool {
	return d.registry.Has(name)
}

// Listeners returns the priority groups registered for name, lowest priority
// first. Groups emptied by RemoveListener are included. The result is a copy.
func (d *Dispatcher) Listeners(name string) []PriorityGroup {
	return d.registry.Groups(name)
}

// EventNames returns every event name that has ever been registered.
func (d *Dispatcher) EventNames() []string {
	return d.registry.Names()
}

// Dispatch invokes the listeners registered for e's name with e.
//
// Propagation stops when a listener returns ErrStopPropagation; Dispatch then
// returns a nil error. Any other listener error, or a done context, aborts the
// remaining listeners and is returned. Dispatch always returns e itself.
func (d *Dispatcher) Dispatch(ctx context.Context, e *Event) (*Event, error) {
	if e == nil {
		return nil, ErrInvalidEvent
	}
	if d.config.requireName {
		if err := e.Validate(); err != nil {
			return e, err
		}
	}

	d.dispatched.Add(1)
	start := time.Now()
	name := e.Name()

	entries := d.registry.snapshot(name)
	if len(entries) == 0 {
		d.unhandled.Add(1)
		d.observe(e, Report{Duration: time.Since(start)})
		return e, nil
	}

	report := Report{Listeners: len(entries)}
	for _, ent := range entries {
		ref := ent.ref
		result := d.executor.Execute(ctx, func(ctx context.Context) error {
			return ref.Handle(ctx, e)
		})

		if result.Skipped {
			report.Err = result.Error
			break
		}

		report.Invoked++
		d.invoked.Add(1)

		if result.Panicked {
			d.panicked.Add(1)
			report.Err = &ListenerError{
				Event:      name,
				ListenerID: ref.ID(),
				Priority:   ent.priority,
				Err:        &PanicError{Value: result.PanicValue, Stack: string(result.PanicStack)},
			}
			break
		}

		if result.IsSuccess() {
			continue
		}

		if isStop(result.Error) {
			report.Stopped = true
			d.log.Debug().
				Str("event", name).
				Str("listener", ref.ID()).
				Int("priority", int(ent.priority)).
				Msg("propagation stopped")
			break
		}

		report.Err = &ListenerError{
			Event:      name,
			ListenerID: ref.ID(),
			Priority:   ent.priority,
			Err:        result.Error,
		}
		break
	}

	report.Duration = time.Since(start)
	switch {
	case report.Err != nil:
		d.failed.Add(1)
		d.log.Debug().Err(report.Err).Str("event", name).Int("invoked", report.Invoked).Msg("dispatch aborted")
	case report.Stopped:
		d.stopped.Add(1)
	}
	d.log.Debug().
		Str("event", name).
		Str("id", e.Metadata().ID).
		Int("invoked", report.Invoked).
		Dur("duration", report.Duration).
		Msg("dispatched")

	d.observe(e, report)
	return e, report.Err
}

func (d *Dispatcher) observe(e *Event, r Report) {
	for _, o := range d.config.observers {
		o.ObserveDispatch(e, r)
	}
}

// Stats returns dispatch statistics.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		EventsDispatched:   d.dispatched.Load(),
		EventsUnhandled:    d.unhandled.Load(),
		ListenersInvoked:   d.invoked.Load(),
		PropagationStopped: d.stopped.Load(),
		ListenerErrors:     d.failed.Load(),
		ListenerPanics:     d.panicked.Load(),
	}
}
