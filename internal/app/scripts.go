package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dshills/evdispatch/internal/event"
	"github.com/dshills/evdispatch/internal/script"
)

// scriptSlot is a stable listener in front of a reloadable script.
//
// The slot is what gets registered, so a reload keeps the listener's
// ListenerRef and its position in the priority group.
type scriptSlot struct {
	path string
	log  zerolog.Logger

	mu      sync.RWMutex
	current *script.Listener
}

// newScriptSlot loads the script at path.
func newScriptSlot(path string, log zerolog.Logger) (*scriptSlot, error) {
	l, err := script.Load(path, log)
	if err != nil {
		return nil, err
	}
	return &scriptSlot{path: path, log: log, current: l}, nil
}

// Handle implements event.Listener.
func (s *scriptSlot) Handle(ctx context.Context, e *event.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return script.ErrStateClosed
	}
	return s.current.Handle(ctx, e)
}

// reload loads the script again and swaps it in once in-flight calls finish.
// On error the previous version stays active.
func (s *scriptSlot) reload() error {
	next, err := script.Load(s.path, s.log)
	if err != nil {
		return err
	}

	s.mu.Lock()
	prev := s.current
	s.current = next
	s.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	return nil
}

// close releases the script.
func (s *scriptSlot) close() {
	s.mu.Lock()
	prev := s.current
	s.current = nil
	s.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
}
