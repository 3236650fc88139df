package event

import (
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Dispatcher.
type Option func(*dispatcherConfig)

// dispatcherConfig contains configuration for a Dispatcher.
type dispatcherConfig struct {
	// logger receives debug output for dispatches.
	logger zerolog.Logger

	// observers are notified after every dispatch.
	observers []Observer

	// recover converts listener panics into errors.
	recover bool

	// listenerTimeout bounds each listener call's context.
	listenerTimeout time.Duration

	// requireName rejects events without a name.
	requireName bool
}

func defaultDispatcherConfig() dispatcherConfig {
	return dispatcherConfig{
		logger: zerolog.Nop(),
	}
}

// WithLogger sets the logger used for dispatch tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(c *dispatcherConfig) {
		c.logger = l
	}
}

// WithObserver adds an observer notified after every dispatch.
func WithObserver(o Observer) Option {
	return func(c *dispatcherConfig) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithRecover recovers listener panics. A recovered panic still aborts the
// dispatch; it is returned as a *ListenerError wrapping a *PanicError.
func WithRecover() Option {
	return func(c *dispatcherConfig) {
		c.recover = true
	}
}

// WithListenerTimeout sets a deadline on the context passed to each listener.
func WithListenerTimeout(d time.Duration) Option {
	return func(c *dispatcherConfig) {
		if d > 0 {
			c.listenerTimeout = d
		}
	}
}

// WithRequireName makes Dispatch reject events with an empty name.
func WithRequireName() Option {
	return func(c *dispatcherConfig) {
		c.requireName = true
	}
}

// ListenerOption configures a single registration.
type ListenerOption func(*listenerConfig)

type listenerConfig struct {
	priority Priority
}

// WithPriority sets the registration priority. Lower values run first.
func WithPriority(p Priority) ListenerOption {
	return func(c *listenerConfig) {
		c.priority = p
	}
}

func newListenerConfig(opts []ListenerOption) listenerConfig {
	c := listenerConfig{priority: PriorityDefault}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
