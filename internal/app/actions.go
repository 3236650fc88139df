package app

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tidwall/sjson"

	"github.com/dshills/evdispatch/internal/config"
	"github.com/dshills/evdispatch/internal/event"
)

// logAction logs each event at info level.
func logAction(log zerolog.Logger, message string) event.ListenerFunc {
	if message == "" {
		message = "event"
	}
	return func(ctx context.Context, e *event.Event) error {
		meta := e.Metadata()
		log.Info().
			Str("event", e.Name()).
			Str("id", meta.ID).
			Str("source", meta.Source).
			Interface("data", e.Data()).
			Msg(message)
		return nil
	}
}

// lockedWriter serializes writes so concurrent echo listeners emit whole lines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// echoAction writes each event to w as one JSON line.
func echoAction(w io.Writer) event.ListenerFunc {
	return func(ctx context.Context, e *event.Event) error {
		line, err := encodeEvent(e)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, line+"\n")
		return errors.Wrap(err, "writing event")
	}
}

// encodeEvent renders an event as a JSON object with name, id, source,
// timestamp and data fields.
func encodeEvent(e *event.Event) (string, error) {
	meta := e.Metadata()

	out := `{}`
	fields := []struct {
		path  string
		value any
	}{
		{"name", e.Name()},
		{"id", meta.ID},
		{"source", meta.Source},
		{"timestamp", meta.Timestamp.UTC().Format(time.RFC3339Nano)},
		{"data", e.Data()},
	}

	var err error
	for _, f := range fields {
		out, err = sjson.Set(out, f.path, f.value)
		if err != nil {
			return "", errors.Wrapf(err, "encoding event field %s", f.path)
		}
	}
	return out, nil
}

// stopAction stops propagation.
func stopAction(ctx context.Context, e *event.Event) error {
	return event.ErrStopPropagation
}

// builtin returns the listener for a non-script action.
func (a *App) builtin(lc config.ListenerConfig) (event.Listener, error) {
	switch lc.Action {
	case config.ActionLog:
		return logAction(a.log, lc.Message), nil
	case config.ActionEcho:
		return echoAction(a.out), nil
	case config.ActionStop:
		return event.ListenerFunc(stopAction), nil
	default:
		return nil, errors.Wrap(ErrUnknownAction, lc.Action)
	}
}
