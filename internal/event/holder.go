package event

import (
	"context"
	"sync"
)

// Holder gives a component its own dispatcher. Embed it to get Dispatch:
//
//	type UserService struct {
//	    event.Holder
//	}
//
//	svc.Dispatch(ctx, event.NewEvent("user.registered", data))
//
// The zero value is ready to use. If no dispatcher was set, one with default
// options is created on first use and kept for the lifetime of the Holder.
type Holder struct {
	mu         sync.Mutex
	dispatcher *Dispatcher
}

// SetDispatcher replaces the held dispatcher.
func (h *Holder) SetDispatcher(d *Dispatcher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.dispatcher = d
}

// Dispatcher returns the held dispatcher, creating it on first use.
func (h *Holder) Dispatcher() *Dispatcher {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dispatcher == nil {
		h.dispatcher = NewDispatcher()
	}
	return h.dispatcher
}

// Dispatch forwards to the held dispatcher.
func (h *Holder) Dispatch(ctx context.Context, e *Event) (*Event, error) {
	return h.Dispatcher().Dispatch(ctx, e)
}
