package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/capture-relay/internal/daemon"
	"github.com/roach88/capture-relay/internal/ipc"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay",
		Long: `Run the relay: open the store, restart keep-alive if needed, and serve
signals and consumer calls until interrupted.

Example:
  relay serve --config /etc/relay.yaml
  relay serve --addr 127.0.0.1:8765 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}
	return cmd
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	log := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat, opts.Verbose)
	slog.SetDefault(log)
	access := zerolog.New(cmd.ErrOrStderr()).With().Timestamp().Str("component", "ipc").Logger()
	if opts.Verbose || cfg.LogLevel == "debug" {
		access = access.Level(zerolog.DebugLevel)
	} else {
		access = access.Level(zerolog.InfoLevel)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	d, err := daemon.New(daemon.Options{
		Config:    cfg,
		Version:   cfg.Version,
		Log:       log,
		AccessLog: &access,
		Registry:  reg,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start relay", err)
	}

	ln, err := ipc.Listen(cfg.Listen)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Relay listening on %s. Press Ctrl-C to stop.\n", cfg.Listen)
	if err := d.Run(ctx, ln); err != nil {
		return WrapExitError(ExitFailure, "relay error", err)
	}
	return nil
}

func newLogger(w io.Writer, level, format string, verbose bool) *slog.Logger {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if verbose {
		lvl = slog.LevelDebug
	}

	hopts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}
