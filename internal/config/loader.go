package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Format identifies a configuration file format.
type Format string

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// EnvConfigPath overrides the default configuration path.
const EnvConfigPath = "EVDISPATCH_CONFIG"

// DefaultPath returns the default configuration file path,
// ~/.config/evdispatch/config.toml, or the EVDISPATCH_CONFIG override.
func DefaultPath() (string, error) {
	if p, ok := os.LookupEnv(EnvConfigPath); ok && p != "" {
		return homedir.Expand(p)
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "locating home directory")
	}
	return filepath.Join(home, ".config", "evdispatch", "config.toml"), nil
}

// Load reads the configuration at path and applies environment overrides.
//
// An empty path loads DefaultPath; if that file doesn't exist the defaults
// are used. A missing explicit path is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrapf(err, "expanding %s", path)
	}
	// Script paths resolve against this file's directory, so it must be absolute
	expanded, err = filepath.Abs(expanded)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", path)
	}

	data, err := os.ReadFile(expanded)
	switch {
	case os.IsNotExist(err) && !explicit:
		cfg := Default()
		if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	case os.IsNotExist(err):
		return nil, errors.Wrap(ErrFileNotFound, expanded)
	case err != nil:
		return nil, errors.Wrapf(err, "reading config file %s", expanded)
	}

	format, err := FormatFor(expanded)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(expanded, data, format)
	if err != nil {
		return nil, err
	}
	cfg.path = expanded

	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.resolveScripts(filepath.Dir(expanded)); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FormatFor returns the format for a file name based on its extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", errors.Wrap(ErrUnsupportedFormat, path)
	}
}

// Parse decodes data on top of the defaults. source is used in errors only.
// Parse does not apply environment overrides or validate.
func Parse(source string, data []byte, format Format) (*Config, error) {
	cfg := Default()

	var err error
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(cfg)
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(cfg)
		if errors.Is(err, io.EOF) {
			// Empty document
			err = nil
		}
	default:
		return nil, errors.Wrap(ErrUnsupportedFormat, string(format))
	}

	if err != nil {
		return nil, &ParseError{
			Path:    source,
			Message: err.Error(),
			Err:     err,
		}
	}
	return cfg, nil
}

// resolveScripts expands ~ in script paths and makes relative paths
// relative to baseDir.
func (c *Config) resolveScripts(baseDir string) error {
	for i := range c.Listeners {
		l := &c.Listeners[i]
		if l.Script == "" {
			continue
		}
		p, err := homedir.Expand(l.Script)
		if err != nil {
			return errors.Wrapf(err, "expanding script path %s", l.Script)
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		l.Script = p
	}
	return nil
}
