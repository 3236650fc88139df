package script

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"
)

// unsafeGlobals are removed from every state. They load code from disk or
// strings and would bypass the sandbox.
var unsafeGlobals = []string{
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"require",
	"module",
}

// state wraps a sandboxed gopher-lua state.
//
// gopher-lua's LState is not goroutine-safe; every access goes through mu.
type state struct {
	L  *lua.LState
	mu sync.Mutex

	closed bool
}

// newState creates a sandboxed state with the log module installed.
func newState(log zerolog.Logger) *state {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	openSafeLibraries(L)

	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	installLog(L, log)
	return &state{L: L}
}

// openSafeLibraries opens base, table, string and math only.
// io, os, debug and package are never opened.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// installLog registers the log module and routes print to debug.
//
// Log functions join their arguments with spaces. A table argument is
// added as structured fields instead, e.g. log.info("sent", {to = addr}).
func installLog(L *lua.LState, log zerolog.Logger) {
	emit := func(level zerolog.Level) lua.LGFunction {
		return func(L *lua.LState) int {
			n := L.GetTop()
			parts := make([]string, 0, n)
			entry := log.WithLevel(level)
			for i := 1; i <= n; i++ {
				arg := L.Get(i)
				if t, ok := arg.(*lua.LTable); ok {
					if fields, ok := toGo(t).(map[string]any); ok {
						entry = entry.Fields(fields)
						continue
					}
				}
				parts = append(parts, L.ToStringMeta(arg).String())
			}
			entry.Msg(strings.Join(parts, " "))
			return 0
		}
	}

	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"debug": emit(zerolog.DebugLevel),
		"info":  emit(zerolog.InfoLevel),
		"warn":  emit(zerolog.WarnLevel),
		"error": emit(zerolog.ErrorLevel),
	})
	L.SetGlobal("log", mod)
	L.SetGlobal("print", L.NewFunction(emit(zerolog.DebugLevel)))
}

// doFile executes a Lua file.
func (s *state) doFile(path string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return s.L.DoFile(path)
}

// call calls the global function fn with args built by build, with ctx
// installed on the state for the duration of the call.
// Returns an empty slice (not nil) if the function returns no values.
func (s *state) call(ctx context.Context, fn string, build func(L *lua.LState) []lua.LValue) (results []lua.LValue, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	fnVal := s.L.GetGlobal(fn)
	if fnVal.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w: %q is %s", ErrNoHandler, fn, fnVal.Type())
	}

	if ctx != nil {
		s.L.SetContext(ctx)
		defer s.L.RemoveContext()
	}

	args := build(s.L)
	stackTop := s.L.GetTop()

	s.L.Push(fnVal)
	for _, arg := range args {
		s.L.Push(arg)
	}

	defer func() {
		if r := recover(); r != nil {
			s.L.SetTop(stackTop)
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	if err := s.L.PCall(len(args), lua.MultRet, nil); err != nil {
		return nil, err
	}

	nRet := s.L.GetTop() - stackTop
	if nRet <= 0 {
		return []lua.LValue{}, nil
	}
	results = make([]lua.LValue, nRet)
	for i := 0; i < nRet; i++ {
		results[i] = s.L.Get(stackTop + i + 1)
	}
	s.L.Pop(nRet)
	return results, nil
}

// close releases the state. It is safe to call more than once.
func (s *state) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.Close()
	s.closed = true
}
