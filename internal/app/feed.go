package app

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/evdispatch/internal/event"
	"github.com/dshills/evdispatch/internal/watch"
)

// maxLineSize bounds a single NDJSON input line.
const maxLineSize = 1 << 20

// FeedStats summarizes a Feed call.
type FeedStats struct {
	// Lines is the number of non-blank lines read.
	Lines int
	// Dispatched counts events that were dispatched without error.
	Dispatched int
	// Failed counts events whose dispatch returned an error.
	Failed int
	// Skipped counts lines that could not be decoded.
	Skipped int
}

// decodeLine parses one NDJSON event:
//
//	{"name": "user.registered", "data": {"email": "a@example.com"}, "source": "signup", "id": "..."}
//
// name is required. data must be an object when present. source and id are
// optional.
func decodeLine(line []byte) (*event.Event, error) {
	if !gjson.ValidBytes(line) {
		return nil, errors.New("invalid JSON")
	}
	doc := gjson.ParseBytes(line)
	if !doc.IsObject() {
		return nil, errors.New("event must be a JSON object")
	}

	name := doc.Get("name")
	if name.Type != gjson.String {
		return nil, errors.New(`"name" must be a string`)
	}

	var data map[string]any
	if raw := doc.Get("data"); raw.Exists() && raw.Type != gjson.Null {
		if !raw.IsObject() {
			return nil, errors.New(`"data" must be an object`)
		}
		data, _ = raw.Value().(map[string]any)
	}

	meta := event.Metadata{
		ID:     doc.Get("id").String(),
		Source: doc.Get("source").String(),
	}
	if meta.Source == "" {
		meta.Source = Source
	}
	return event.NewEventWithMetadata(name.String(), data, meta), nil
}

// Feed dispatches one event per NDJSON line read from r until EOF or ctx is
// done. Undecodable lines and failed dispatches are logged and counted, not
// returned; Feed only fails on read errors and cancellation.
//
// Cancellation is noticed while a read is blocked. The reading goroutine
// then stays in Read until r returns, so callers owning r should close it.
func (a *App) Feed(ctx context.Context, r io.Reader) (FeedStats, error) {
	var stats FeedStats
	if a.closed.Load() {
		return stats, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	done := make(chan struct{})
	defer close(done)
	lines, readErr := readLines(r, done)

	lineNo := 0
	for {
		var raw []byte
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case l, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					return stats, errors.Wrap(err, "reading events")
				}
				return stats, nil
			}
			raw = l
		}

		lineNo++
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}
		stats.Lines++

		e, err := decodeLine(line)
		if err != nil {
			stats.Skipped++
			a.log.Warn().Err(&LineError{Line: lineNo, Err: err}).Msg("skipping input line")
			continue
		}

		if _, err := a.Dispatch(ctx, e); err != nil {
			stats.Failed++
			a.log.Error().Err(err).Str("event", e.Name()).Int("line", lineNo).Msg("dispatch failed")
			continue
		}
		stats.Dispatched++
	}
}

// readLines scans r on its own goroutine and sends each line, copied, until
// EOF, a read error or done is closed. The scan error is delivered on the
// second channel before lines is closed.
func readLines(r io.Reader, done <-chan struct{}) (<-chan []byte, <-chan error) {
	lines := make(chan []byte)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-done:
				return
			}
		}
		errc <- scanner.Err()
	}()

	return lines, errc
}

// Run feeds events from r. With reload set, script listeners are reloaded
// when their files change until the input is exhausted.
func (a *App) Run(ctx context.Context, r io.Reader, reload bool) (FeedStats, error) {
	scripts := a.Scripts()
	if !reload || len(scripts) == 0 {
		return a.Feed(ctx, r)
	}

	w, err := watch.New(watch.WithLogger(a.log))
	if err != nil {
		return FeedStats{}, &ComponentError{Component: "watcher", Action: "start", Err: err}
	}
	defer w.Close()

	for _, path := range scripts {
		if err := w.Add(path); err != nil {
			return FeedStats{}, &ComponentError{Component: "watcher", Action: "add " + path, Err: err}
		}
	}

	var stats FeedStats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.Run(gctx, func(path string) {
			if err := a.Reload(path); err != nil {
				a.log.Error().Err(err).Str("script", path).Msg("script reload failed")
				return
			}
			a.log.Info().Str("script", path).Msg("script reloaded")
		})
	})

	g.Go(func() error {
		defer w.Close()
		var err error
		stats, err = a.Feed(gctx, r)
		return err
	})

	err = g.Wait()
	return stats, err
}
