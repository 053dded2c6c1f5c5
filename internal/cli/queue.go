package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

// NewQueueCommand creates the queue command group.
func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect or drain events queued while no consumer was attached",
	}
	cmd.AddCommand(newQueueSubcommand(rootOpts, "list", "List queued records, oldest first", http.MethodGet, "/v1/queue"))
	cmd.AddCommand(newQueueSubcommand(rootOpts, "drain", "Print and remove every queued record", http.MethodPost, "/v1/queue/drain"))
	return cmd
}

func newQueueSubcommand(opts *RootOptions, use, short, method, path string) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			resp, err := c.Do(commandContext(cmd), method, path, nil)
			if err != nil {
				return WrapExitError(ExitCommandError, "queue "+use+" failed", err)
			}
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return out.Relay(resp, recordLines)
		},
	}
}

func recordLines(data any) []string {
	m, _ := data.(map[string]any)
	records, _ := m["records"].([]any)
	if len(records) == 0 {
		return []string{"No queued records."}
	}
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, fmt.Sprint(r))
	}
	return lines
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
