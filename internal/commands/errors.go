package commands

import "fmt"

// Code identifies the command that failed.
type Code string

const (
	CodePermission          Code = "PERMISSION_ERROR"
	CodePermissionCheck     Code = "PERMISSION_CHECK_ERROR"
	CodeBatteryOptimization Code = "BATTERY_OPTIMIZATION_ERROR"
	CodeKeepAlive           Code = "KEEP_ALIVE_ERROR"
	CodeProcessing          Code = "PROCESSING_ERROR"
	CodeSMSProcessing       Code = "SMS_PROCESSING_ERROR"
	CodeNotImplemented      Code = "NOT_IMPLEMENTED"
)

// CommandError is the error reply to a consumer command.
type CommandError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
