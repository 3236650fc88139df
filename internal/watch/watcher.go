// Package watch notifies about changes to individual files.
//
// fsnotify watches directories, so the watcher subscribes to each file's
// parent directory and filters events down to the registered files. Bursts
// of writes to one file are coalesced into a single callback after the
// debounce delay.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDelay is the default debounce delay.
const DefaultDelay = 100 * time.Millisecond

// Errors returned by the watcher.
var (
	// ErrWatcherClosed is returned when using a closed watcher.
	ErrWatcherClosed = errors.New("watcher is closed")

	// ErrPathNotExist is returned when adding a file that doesn't exist.
	ErrPathNotExist = errors.New("path does not exist")
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDelay sets the debounce delay. Non-positive values use DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithLogger sets the logger for watch errors.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Watcher) {
		w.log = l
	}
}

// Watcher reports debounced changes to a set of files.
type Watcher struct {
	fsw   *fsnotify.Watcher
	delay time.Duration
	log   zerolog.Logger

	mu      sync.Mutex
	files   map[string]bool
	dirs    map[string]bool
	pending map[string]*time.Timer
	closed  bool

	fire chan string
	done chan struct{}
}

// New creates a watcher.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:     fsw,
		delay:   DefaultDelay,
		log:     zerolog.Nop(),
		files:   make(map[string]bool),
		dirs:    make(map[string]bool),
		pending: make(map[string]*time.Timer),
		fire:    make(chan string, 16),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Add registers a file. Adding the same file twice is a no-op.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return ErrPathNotExist
		}
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if w.files[abs] {
		return nil
	}

	dir := filepath.Dir(abs)
	if !w.dirs[dir] {
		if err := w.fsw.Add(dir); err != nil {
			return err
		}
		w.dirs[dir] = true
	}
	w.files[abs] = true
	return nil
}

// Files returns the registered files, sorted.
func (w *Watcher) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	files := make([]string, 0, len(w.files))
	for f := range w.files {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Run delivers changes to onChange until ctx is done or the watcher is
// closed. onChange receives the absolute path and is called from Run's
// goroutine, one call at a time. Run returns nil on shutdown.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) error {
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-w.done:
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("watch error")

		case path := <-w.fire:
			onChange(path)
		}
	}
}

// handle schedules or extends the debounce timer for a registered file.
func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
		return
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || !w.files[abs] {
		return
	}

	if t, ok := w.pending[abs]; ok {
		t.Reset(w.delay)
		return
	}
	w.pending[abs] = time.AfterFunc(w.delay, func() {
		w.mu.Lock()
		delete(w.pending, abs)
		w.mu.Unlock()

		select {
		case w.fire <- abs:
		case <-w.done:
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

// Close stops the watcher and makes Run return.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	w.mu.Unlock()

	w.stopTimers()
	return w.fsw.Close()
}
