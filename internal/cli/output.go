package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/capture-relay/internal/ipc"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The relay answered with an error
	ExitCommandError = 2 // Command error (bad config, relay unreachable, store not found)
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as JSON envelopes or plain text.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Success writes data. In text mode text is printed instead, one line per
// element.
func (f *OutputFormatter) Success(data any, text ...string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(ipc.Response{Status: "ok", Data: data})
	}
	if len(text) == 0 {
		fmt.Fprintln(f.Writer, data)
		return nil
	}
	for _, line := range text {
		fmt.Fprintln(f.Writer, line)
	}
	return nil
}

// Error writes a failure in the configured format.
func (f *OutputFormatter) Error(code, message string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(ipc.Response{
			Status: "error",
			Error:  &ipc.ErrorBody{Code: code, Message: message},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return nil
}

// Relay writes a relay response. An error response is printed and returned
// as an ExitError with ExitFailure.
func (f *OutputFormatter) Relay(resp ipc.Response, text func(data any) []string) error {
	if resp.Status != "ok" {
		code, msg := "UNKNOWN", "relay returned no error details"
		if resp.Error != nil {
			code, msg = resp.Error.Code, resp.Error.Message
		}
		if err := f.Error(code, msg); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	if text == nil {
		return f.Success(resp.Data)
	}
	return f.Success(resp.Data, text(resp.Data)...)
}
