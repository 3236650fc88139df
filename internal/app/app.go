// Package app hosts a configured dispatcher: it registers the listeners
// declared in the configuration, publishes events from the command line or an
// NDJSON stream, reloads script listeners when their files change, and
// exposes dispatch metrics.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/dshills/evdispatch/internal/config"
	"github.com/dshills/evdispatch/internal/event"
	"github.com/dshills/evdispatch/internal/metrics"
)

// Source is the metadata source of events published by the application.
const Source = "evdispatch"

// Options configures the application.
type Options struct {
	// Logger receives application and script logs. The zero value discards.
	Logger zerolog.Logger

	// Output receives echo listener lines. Defaults to os.Stdout.
	Output io.Writer
}

// registration describes one registered listener for WriteListeners.
type registration struct {
	action  string
	script  string
	sources []string
}

// App is a configured event dispatcher host.
type App struct {
	event.Holder

	cfg *config.Config
	log zerolog.Logger
	out io.Writer

	registry  *prometheus.Registry
	collector *metrics.Collector

	mu      sync.Mutex
	slots   map[string][]*scriptSlot
	entries map[*event.ListenerRef]registration

	closed atomic.Bool
}

// New creates an application from cfg and registers its listeners in
// configuration order.
func New(cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	a := &App{
		cfg:     cfg,
		log:     opts.Logger,
		out:     &lockedWriter{w: out},
		slots:   make(map[string][]*scriptSlot),
		entries: make(map[*event.ListenerRef]registration),
	}

	if err := a.bootstrap(); err != nil {
		a.closeScripts()
		return nil, err
	}
	return a, nil
}

// bootstrap builds the dispatcher and registers the configured listeners.
func (a *App) bootstrap() error {
	timeout, err := a.cfg.Dispatcher.Timeout()
	if err != nil {
		return errors.Wrap(err, "listener timeout")
	}

	dopts := []event.Option{
		event.WithLogger(a.log),
		event.WithListenerTimeout(timeout),
	}
	if a.cfg.Dispatcher.RecoverPanics {
		dopts = append(dopts, event.WithRecover())
	}
	if a.cfg.Dispatcher.RequireName {
		dopts = append(dopts, event.WithRequireName())
	}

	if a.cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		a.collector, err = metrics.NewCollector(a.cfg.Metrics.Namespace, a.registry,
			metrics.WithEvents(a.cfg.Metrics.Events...))
		if err != nil {
			return &ComponentError{Component: "metrics", Action: "register", Err: err}
		}
		dopts = append(dopts, event.WithObserver(a.collector))
	}

	a.SetDispatcher(event.NewDispatcher(dopts...))

	for i, lc := range a.cfg.Listeners {
		if err := a.register(lc); err != nil {
			return errors.Wrapf(err, "listeners[%d]", i)
		}
	}
	return nil
}

// register adds one configured listener to the dispatcher.
func (a *App) register(lc config.ListenerConfig) error {
	var l event.Listener
	reg := registration{action: lc.Action, sources: lc.Sources}

	if lc.Action == config.ActionScript {
		// Slots are keyed by absolute path, which is what the watcher reports
		path, err := filepath.Abs(lc.Script)
		if err != nil {
			return &ComponentError{Component: "script", Action: "resolve", Err: err}
		}
		slot, err := newScriptSlot(path, a.log)
		if err != nil {
			return &ComponentError{Component: "script", Action: "load", Err: err}
		}
		a.mu.Lock()
		a.slots[path] = append(a.slots[path], slot)
		a.mu.Unlock()

		l = slot
		reg.script = path
	} else {
		b, err := a.builtin(lc)
		if err != nil {
			return err
		}
		l = b
	}
	if len(lc.Sources) > 0 {
		l = event.Filtered(l, event.FilterBySources(lc.Sources...))
	}

	ref := event.NewListenerRef(l)
	if err := a.Dispatcher().AddListener(lc.Event, ref, event.WithPriority(event.Priority(lc.Priority))); err != nil {
		return err
	}

	a.mu.Lock()
	a.entries[ref] = reg
	a.mu.Unlock()

	a.log.Debug().
		Str("event", lc.Event).
		Int("priority", lc.Priority).
		Str("action", lc.Action).
		Str("ref", ref.ID()).
		Msg("listener registered")
	return nil
}

// Config returns the application configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Publish dispatches one event built from name and data.
func (a *App) Publish(ctx context.Context, name string, data map[string]any) (*event.Event, error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}
	e := event.NewEventWithMetadata(name, data, event.Metadata{Source: Source})
	return a.Dispatch(ctx, e)
}

// Scripts returns the absolute paths of the loaded script listeners, sorted.
func (a *App) Scripts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	paths := make([]string, 0, len(a.slots))
	for p := range a.slots {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Reload reloads every script listener loaded from path. Listeners keep
// their registration and position. If loading fails the previous version
// stays active and the error is returned.
func (a *App) Reload(path string) error {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	a.mu.Lock()
	slots := append([]*scriptSlot(nil), a.slots[path]...)
	a.mu.Unlock()

	if len(slots) == 0 {
		return errors.Errorf("no script listener for %s", path)
	}

	var errs ErrorList
	for _, s := range slots {
		errs.Add(s.reload())
	}
	if err := errs.AsError(); err != nil {
		return &ComponentError{Component: "script", Action: "reload", Err: err}
	}
	return nil
}

// WriteListeners writes the priority groups of the named events, or of
// every event with listeners if none are named.
func (a *App) WriteListeners(w io.Writer, names ...string) error {
	d := a.Dispatcher()
	if len(names) == 0 {
		names = d.EventNames()
	}

	a.mu.Lock()
	entries := make(map[*event.ListenerRef]registration, len(a.entries))
	for ref, reg := range a.entries {
		entries[ref] = reg
	}
	a.mu.Unlock()

	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%s\n", name); err != nil {
			return err
		}
		groups := d.Listeners(name)
		if len(groups) == 0 {
			if _, err := fmt.Fprintln(w, "  (no listeners)"); err != nil {
				return err
			}
			continue
		}
		for _, g := range groups {
			for _, ref := range g.Listeners {
				reg := entries[ref]
				desc := reg.action
				if reg.script != "" {
					desc += " " + reg.script
				}
				if len(reg.sources) > 0 {
					desc += " [" + strings.Join(reg.sources, ",") + "]"
				}
				if _, err := fmt.Fprintf(w, "  %6d  %s  %s\n", g.Priority, ref.ID(), desc); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// WriteMetrics writes the dispatch metrics in the Prometheus text format.
func (a *App) WriteMetrics(w io.Writer) error {
	if a.registry == nil {
		return ErrMetricsDisabled
	}
	return metrics.WriteText(w, a.registry)
}

// Close releases all script listeners. Dispatching after Close fails with
// ErrClosed for Publish and Feed.
func (a *App) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	a.closeScripts()
	return nil
}

func (a *App) closeScripts() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, slots := range a.slots {
		for _, s := range slots {
			s.close()
		}
	}
}
