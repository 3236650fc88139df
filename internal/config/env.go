package config

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Environment variables that override file settings.
const (
	EnvLogLevel      = "EVDISPATCH_LOG_LEVEL"
	EnvLogFormat     = "EVDISPATCH_LOG_FORMAT"
	EnvMetrics       = "EVDISPATCH_METRICS"
	EnvRecoverPanics = "EVDISPATCH_RECOVER_PANICS"
	EnvTimeout       = "EVDISPATCH_LISTENER_TIMEOUT"
)

// LookupFunc looks up an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// envSetter applies one environment value to the configuration.
type envSetter func(c *Config, val string) error

// envMapping returns the environment variable to setter mapping.
func envMapping() map[string]envSetter {
	return map[string]envSetter{
		EnvLogLevel: func(c *Config, val string) error {
			c.Log.Level = strings.ToLower(strings.TrimSpace(val))
			return nil
		},
		EnvLogFormat: func(c *Config, val string) error {
			c.Log.Format = strings.ToLower(strings.TrimSpace(val))
			return nil
		},
		EnvMetrics: func(c *Config, val string) error {
			b, err := strconv.ParseBool(val)
			if err != nil {
				return err
			}
			c.Metrics.Enabled = b
			return nil
		},
		EnvRecoverPanics: func(c *Config, val string) error {
			b, err := strconv.ParseBool(val)
			if err != nil {
				return err
			}
			c.Dispatcher.RecoverPanics = b
			return nil
		},
		EnvTimeout: func(c *Config, val string) error {
			c.Dispatcher.ListenerTimeout = strings.TrimSpace(val)
			return nil
		},
	}
}

// ApplyEnv overrides c with any EVDISPATCH_* variables found by lookup.
// Empty values are treated as set.
func ApplyEnv(c *Config, lookup LookupFunc) error {
	for key, set := range envMapping() {
		val, ok := lookup(key)
		if !ok {
			continue
		}
		if err := set(c, val); err != nil {
			return errors.Wrapf(err, "invalid %s", key)
		}
	}
	return nil
}
