package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

// CommandOptions holds flags for the command command.
type CommandOptions struct {
	*RootOptions
	Args string
}

// NewCommandCommand creates the command command.
func NewCommandCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CommandOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "command <method>",
		Short: "Send a consumer command to the running relay",
		Long: `Send a consumer command to the running relay.

Methods: requestPermission, checkPermission, requestPowerExemption,
startKeepAlive, stopKeepAlive, processNotification, processSms.

Example:
  relay command checkPermission
  relay command processSms --args '{"sender":"BANK","body":"Debited 500"}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendCommand(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "{}", "command arguments as JSON")
	return cmd
}

func sendCommand(opts *CommandOptions, method string, cmd *cobra.Command) error {
	var args map[string]any
	if err := json.Unmarshal([]byte(opts.Args), &args); err != nil {
		return WrapExitError(ExitCommandError, "invalid --args JSON", err)
	}

	c, err := opts.client()
	if err != nil {
		return err
	}
	resp, err := c.Do(commandContext(cmd), http.MethodPost, "/v1/commands/"+url.PathEscape(method), args)
	if err != nil {
		return WrapExitError(ExitCommandError, "command failed", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Relay(resp, func(data any) []string {
		return []string{fmt.Sprintf("%s: %v", method, data)}
	})
}
