package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/capture-relay/internal/config"
	"github.com/roach88/capture-relay/internal/ipc"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Addr       string
	Version    string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the relay CLI.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{Version: version}

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Capture relay for SMS and notifications",
		Long: `Capture incoming text messages and notifications and relay them to a
local consumer, queueing them durably while no consumer is attached.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (.yaml, .toml or .json)")
	cmd.PersistentFlags().StringVar(&opts.Addr, "addr", "", "relay address, overrides config listen")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewQueueCommand(opts))
	cmd.AddCommand(NewCommandCommand(opts))
	cmd.AddCommand(NewKeepAliveCommand(opts))
	cmd.AddCommand(NewBindCommand(opts))
	cmd.AddCommand(NewPermissionCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewScenarioCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// loadConfig reads the config file and applies flag overrides.
func (o *RootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return cfg, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Addr != "" {
		cfg.Listen = o.Addr
	}
	cfg.Version = resolveVersion(o.Version, cfg.Version)
	return cfg, nil
}

// devVersion is the version of a build without -ldflags.
const devVersion = "dev"

// resolveVersion picks the version the lifecycle detector compares across
// runs. A released binary always reports its own version; the config value
// only stands in for a dev build.
func resolveVersion(binary, configured string) string {
	if binary != "" && binary != devVersion {
		return binary
	}
	if configured != "" {
		return configured
	}
	return binary
}

// client connects to the running relay.
func (o *RootOptions) client() (*ipc.Client, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	c, err := ipc.NewClient(cfg.Listen)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid relay address", err)
	}
	return c, nil
}
