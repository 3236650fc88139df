package event

import "sync"

// ListenerProvider is a flat listener registry without priorities.
// Listeners are kept per event name in the order they were added.
// The zero value is ready to use.
type ListenerProvider struct {
	mu        sync.RWMutex
	listeners map[string][]*ListenerRef
}

// NewListenerProvider creates an empty provider.
func NewListenerProvider() *ListenerProvider {
	return &ListenerProvider{
		listeners: make(map[string][]*ListenerRef),
	}
}

// AddListener appends ref to the listeners of name.
func (p *ListenerProvider) AddListener(name string, ref *ListenerRef) error {
	if ref == nil || ref.listener == nil {
		return ErrNilListener
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.listeners == nil {
		p.listeners = make(map[string][]*ListenerRef)
	}
	p.listeners[name] = append(p.listeners[name], ref)
	return nil
}

// ListenersFor returns a copy of the listeners of name.
// Returns an empty slice if none were added.
func (p *ListenerProvider) ListenersFor(name string) []*ListenerRef {
	p.mu.RLock()
	defer p.mu.RUnlock()

	refs := p.listeners[name]
	result := make([]*ListenerRef, len(refs))
	copy(result, refs)
	return result
}

// Attach registers every provided listener on d, keeping provider order.
func (p *ListenerProvider) Attach(d *Dispatcher, opts ...ListenerOption) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for name, refs := range p.listeners {
		for _, ref := range refs {
			if err := d.AddListener(name, ref, opts...); err != nil {
				return err
			}
		}
	}
	return nil
}
