package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/capture-relay/internal/config"
)

// ErrCodeInvalidConfig is reported when a config file fails the schema.
const ErrCodeInvalidConfig = "INVALID_CONFIG"

// ValidationResult holds the outcome of checking a config file.
type ValidationResult struct {
	Valid  bool           `json:"valid"`
	Config *config.Config `json:"config,omitempty"`
	Error  string         `json:"error,omitempty"`
	Path   string         `json:"path,omitempty"`
	Line   int            `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a config file without starting the relay",
		Long: `Parse a YAML, TOML or JSON config file, check it against the schema
and print the resolved configuration.

Exit codes:
  0 - Config is valid
  1 - Config is invalid
  2 - Command error (unreadable file, unsupported extension)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	cfg, err := config.Load(path)
	if err != nil {
		var ve *config.ValidationError
		if !errors.As(err, &ve) {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}

		result := ValidationResult{Error: err.Error(), Path: ve.Path}
		if ve.Pos.IsValid() {
			result.Line = ve.Pos.Line()
		}
		if err := out.Success(result, "Invalid: "+err.Error()); err != nil {
			return err
		}
		return NewExitError(ExitFailure, err.Error())
	}

	return out.Success(ValidationResult{Valid: true, Config: &cfg}, validLines(path, cfg)...)
}

func validLines(path string, cfg config.Config) []string {
	return []string{
		fmt.Sprintf("%s is valid", path),
		"  listen:     " + cfg.Listen,
		"  database:   " + cfg.DBPath,
		"  package id: " + cfg.PackageID,
		"  log:        " + cfg.LogLevel + " (" + cfg.LogFormat + ")",
	}
}
