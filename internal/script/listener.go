// Package script runs Lua files as event listeners.
//
// A script defines a global handle function that receives the event as a
// table with name, id, source, timestamp and data fields:
//
//	function handle(event)
//	    log.info("welcome", {user = event.data.email})
//	    if event.data.banned then
//	        return false -- stop propagation
//	    end
//	end
//
// Returning false stops propagation. Any other return value continues.
// A Lua error aborts the dispatch with a *ScriptError.
//
// Scripts run in a sandbox with the base, table, string and math libraries
// only. The dispatch context is installed on the state while handle runs,
// so cancelling it interrupts the script.
package script

import (
	"context"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/evdispatch/internal/event"
)

// HandlerName is the global function a script must define.
const HandlerName = "handle"

// Listener is an event listener backed by a Lua script.
// It is safe for concurrent use; calls into the script are serialized.
type Listener struct {
	path  string
	state *state
	log   zerolog.Logger
}

// Load compiles and runs the script at path and checks that it defines
// handle. Script log output goes to log with a script field.
func Load(path string, log zerolog.Logger) (*Listener, error) {
	log = log.With().Str("script", path).Logger()

	st := newState(log)
	if err := st.doFile(path); err != nil {
		st.close()
		return nil, &ScriptError{Path: path, Err: err}
	}

	if fn := st.L.GetGlobal(HandlerName); fn.Type() != lua.LTFunction {
		st.close()
		return nil, &ScriptError{Path: path, Err: ErrNoHandler}
	}

	return &Listener{
		path:  path,
		state: st,
		log:   log,
	}, nil
}

// Path returns the script file.
func (l *Listener) Path() string {
	return l.path
}

// Handle implements event.Listener.
func (l *Listener) Handle(ctx context.Context, e *event.Event) error {
	results, err := l.state.call(ctx, HandlerName, func(L *lua.LState) []lua.LValue {
		return []lua.LValue{eventTable(L, e)}
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return &ScriptError{Path: l.path, Event: e.Name(), Err: err}
	}

	if len(results) > 0 && results[0] == lua.LFalse {
		l.log.Debug().Str("event", e.Name()).Msg("script stopped propagation")
		return event.ErrStopPropagation
	}
	return nil
}

// Close releases the Lua state. Handle fails with ErrStateClosed afterwards.
func (l *Listener) Close() {
	l.state.close()
}

var _ event.Listener = (*Listener)(nil)
