package backenderrors

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotFound         = errors.New("not found")
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrTransport        = errors.New("transport failure")
)

// StatusError carries a non-2xx answer from the backend.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}
