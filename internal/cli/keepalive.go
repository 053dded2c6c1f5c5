package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

// NewKeepAliveCommand creates the keepalive command.
func NewKeepAliveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "keepalive",
		Short:         "Show the keep-alive supervisor state",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rootOpts.client()
			if err != nil {
				return err
			}
			resp, err := c.Do(commandContext(cmd), http.MethodGet, "/v1/keepalive", nil)
			if err != nil {
				return WrapExitError(ExitCommandError, "keepalive status failed", err)
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Relay(resp, func(data any) []string {
				m, _ := data.(map[string]any)
				line := fmt.Sprintf("state: %v", m["state"])
				if class, ok := m["class"]; ok {
					line += fmt.Sprintf(" (%v)", class)
				}
				if degraded, _ := m["degraded"].(bool); degraded {
					line += " degraded"
				}
				return []string{line, fmt.Sprintf("since: %v", m["since"])}
			})
		},
	}
}
