package cli

import (
	"net/http"

	"github.com/spf13/cobra"
)

// NewBindCommand creates the bind command.
func NewBindCommand(rootOpts *RootOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "bind <callback-url>",
		Short: "Attach a consumer callback to the running relay",
		Long: `Attach a consumer callback to the running relay. Calls are POSTed to the
callback as {"method": ..., "args": {...}}.

Example:
  relay bind http://127.0.0.1:9400/calls
  relay bind unix:///run/user/1000/consumer.sock --category sms`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rootOpts.client()
			if err != nil {
				return err
			}
			resp, err := c.Do(commandContext(cmd), http.MethodPut, "/v1/bindings/"+category,
				map[string]string{"callbackUrl": args[0]})
			if err != nil {
				return WrapExitError(ExitCommandError, "bind failed", err)
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Relay(resp, func(any) []string {
				return []string{"Bound " + category + " to " + args[0]}
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "all", "category to bind (sms|notification|app|all)")
	return cmd
}
