package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/capture-relay/internal/commands"
	"github.com/roach88/capture-relay/internal/store"
)

// NewPermissionCommand creates the permission command group. It edits the
// enabled listener list directly in the store, so it works whether or not
// the relay is running.
func NewPermissionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "permission",
		Short: "Grant or revoke notification listener access",
	}
	cmd.AddCommand(newPermissionSubcommand(rootOpts, "grant", "granted", commands.GrantPermission))
	cmd.AddCommand(newPermissionSubcommand(rootOpts, "revoke", "revoked", commands.RevokePermission))
	return cmd
}

type permissionFunc func(ctx context.Context, settings commands.Settings, packageID string) error

func newPermissionSubcommand(opts *RootOptions, use, done string, apply permissionFunc) *cobra.Command {
	return &cobra.Command{
		Use:           use + " [package-id]",
		Short:         capitalize(use) + " notification listener access (default: configured package id)",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			pkg := cfg.PackageID
			if len(args) == 1 {
				pkg = args[0]
			}

			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o700); err != nil {
				return WrapExitError(ExitCommandError, "failed to create data dir", err)
			}
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open database", err)
			}
			defer st.Close()

			if err := apply(commandContext(cmd), st, pkg); err != nil {
				return WrapExitError(ExitFailure, "permission "+use+" failed", err)
			}
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(map[string]string{"packageId": pkg, "action": use}, "Permission "+done+" for "+pkg)
		},
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
