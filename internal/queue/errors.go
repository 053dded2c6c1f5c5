package queue

import (
	"errors"
	"fmt"
)

// Code categorizes queue errors.
type Code string

const (
	// CodeStoreUnavailable indicates the backing store could not be read or
	// written, or the queue no longer accepts records. The record is lost.
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
)

// Error is returned by queue operations.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsStoreUnavailable reports whether err is a StoreUnavailable queue error.
// Uses errors.As to handle wrapped errors.
func IsStoreUnavailable(err error) bool {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code == CodeStoreUnavailable
	}
	return false
}

func storeUnavailable(message string, err error) *Error {
	return &Error{Code: CodeStoreUnavailable, Message: message, Err: err}
}
