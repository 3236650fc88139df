package main

import (
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/dshills/evdispatch/internal/app"
	"github.com/dshills/evdispatch/internal/config"
	"github.com/dshills/evdispatch/internal/logging"
)

// rootOptions holds the persistent flags and the application built from them.
type rootOptions struct {
	configPath string
	logLevel   string
	metrics    bool

	app *app.App
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "evdispatch",
		Short:         "Dispatch named events to prioritized listeners",
		Version:       version + " (" + commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default is ~/.config/evdispatch/config.toml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error, disabled")
	flags.BoolVar(&opts.metrics, "metrics", false, "print dispatch metrics on exit")

	cmd.AddCommand(
		newPublishCmd(opts),
		newRunCmd(opts),
		newListenersCmd(opts),
	)
	return cmd
}

// setup loads the configuration, applies flag overrides and builds the app.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return errors.Wrap(err, "loading config")
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.metrics {
		cfg.Metrics.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if cfg.Path() != "" {
		log.Debug().Str("path", cfg.Path()).Msg("config loaded")
	}

	o.app, err = app.New(cfg, app.Options{
		Logger: log,
		Output: cmd.OutOrStdout(),
	})
	return err
}

// runE wraps a subcommand so metrics are printed and the app is closed
// whether or not the command succeeds.
func (o *rootOptions) runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if terr := o.teardown(cmd); err == nil {
			err = terr
		}
		return err
	}
}

// teardown prints metrics if requested and closes the app.
func (o *rootOptions) teardown(cmd *cobra.Command) error {
	if o.app == nil {
		return nil
	}
	defer o.app.Close()

	if o.metrics {
		return o.app.WriteMetrics(cmd.ErrOrStderr())
	}
	return nil
}
