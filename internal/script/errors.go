package script

import (
	"errors"
	"fmt"
)

// Errors for script operations.
var (
	// ErrStateClosed is returned when calling a closed script.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrNoHandler is returned when a script defines no handle function.
	ErrNoHandler = errors.New("script has no handle function")
)

// ScriptError reports a failure loading or running a script.
type ScriptError struct {
	// Path is the script file.
	Path string
	// Event is the event being handled, empty for load errors.
	Event string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	if e.Event == "" {
		return fmt.Sprintf("script %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("script %s on event %q: %v", e.Path, e.Event, e.Err)
}

// Unwrap returns the underlying error.
func (e *ScriptError) Unwrap() error {
	return e.Err
}
