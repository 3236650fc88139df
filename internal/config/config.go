// Package config loads the evdispatch host configuration.
//
// Configuration is read from a TOML or YAML file (chosen by extension) and
// then overridden from EVDISPATCH_* environment variables. Unset keys keep
// their defaults.
package config

import (
	"fmt"
	"time"
)

// Listener actions.
const (
	// ActionLog logs the event at info level.
	ActionLog = "log"

	// ActionEcho writes the event as one JSON line to the output.
	ActionEcho = "echo"

	// ActionStop stops propagation.
	ActionStop = "stop"

	// ActionScript runs a Lua script listener.
	ActionScript = "script"
)

// Config is the complete host configuration.
type Config struct {
	Log        LogConfig        `toml:"log" yaml:"log"`
	Metrics    MetricsConfig    `toml:"metrics" yaml:"metrics"`
	Dispatcher DispatcherConfig `toml:"dispatcher" yaml:"dispatcher"`
	Listeners  []ListenerConfig `toml:"listeners" yaml:"listeners"`

	// path is the file the configuration was loaded from.
	path string
}

// LogConfig configures the logger.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error, disabled.
	Level string `toml:"level" yaml:"level"`

	// Format is auto, json or console. Auto uses console output on a terminal.
	Format string `toml:"format" yaml:"format"`
}

// MetricsConfig configures dispatch metrics.
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled" yaml:"enabled"`
	Namespace string `toml:"namespace" yaml:"namespace"`

	// Events lists the event names that get their own label value. Other
	// names are counted under "other". Empty labels every name as is.
	Events []string `toml:"events" yaml:"events"`
}

// DispatcherConfig configures the dispatcher.
type DispatcherConfig struct {
	// RecoverPanics converts listener panics into dispatch errors.
	RecoverPanics bool `toml:"recover_panics" yaml:"recover_panics"`

	// RequireName rejects events with an empty name.
	RequireName bool `toml:"require_name" yaml:"require_name"`

	// ListenerTimeout bounds each listener call, e.g. "2s". Empty means none.
	ListenerTimeout string `toml:"listener_timeout" yaml:"listener_timeout"`
}

// ListenerConfig declares one listener registration.
type ListenerConfig struct {
	Event    string `toml:"event" yaml:"event"`
	Priority int    `toml:"priority" yaml:"priority"`
	Action   string `toml:"action" yaml:"action"`

	// Script is the Lua file for ActionScript. Relative paths are resolved
	// against the configuration file's directory.
	Script string `toml:"script" yaml:"script"`

	// Message replaces the log line for ActionLog.
	Message string `toml:"message" yaml:"message"`

	// Sources restricts the listener to events from these sources.
	// Empty means all sources.
	Sources []string `toml:"sources" yaml:"sources"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "evdispatch",
		},
	}
}

// Path returns the file the configuration was loaded from, or "" for defaults.
func (c *Config) Path() string {
	return c.path
}

// Timeout returns the parsed listener timeout. Zero means none.
func (c *DispatcherConfig) Timeout() (time.Duration, error) {
	if c.ListenerTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.ListenerTimeout)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", c.ListenerTimeout)
	}
	return d, nil
}

// Scripts returns the script paths referenced by listeners, in order.
func (c *Config) Scripts() []string {
	var paths []string
	for _, l := range c.Listeners {
		if l.Action == ActionScript {
			paths = append(paths, l.Script)
		}
	}
	return paths
}

var (
	validLevels  = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true}
	validFormats = map[string]bool{"auto": true, "json": true, "console": true}
	validActions = map[string]bool{ActionLog: true, ActionEcho: true, ActionStop: true, ActionScript: true}
)

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if !validLevels[c.Log.Level] {
		return &ValidationError{Field: "log.level", Message: fmt.Sprintf("unknown level %q", c.Log.Level)}
	}
	if !validFormats[c.Log.Format] {
		return &ValidationError{Field: "log.format", Message: fmt.Sprintf("unknown format %q", c.Log.Format)}
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return &ValidationError{Field: "metrics.namespace", Message: "required when metrics are enabled"}
	}
	if _, err := c.Dispatcher.Timeout(); err != nil {
		return &ValidationError{Field: "dispatcher.listener_timeout", Message: err.Error()}
	}

	for i, l := range c.Listeners {
		field := fmt.Sprintf("listeners[%d]", i)
		if l.Event == "" {
			return &ValidationError{Field: field + ".event", Message: "required"}
		}
		if !validActions[l.Action] {
			return &ValidationError{Field: field + ".action", Message: fmt.Sprintf("unknown action %q", l.Action)}
		}
		if l.Action == ActionScript && l.Script == "" {
			return &ValidationError{Field: field + ".script", Message: "required for script listeners"}
		}
	}
	return nil
}
