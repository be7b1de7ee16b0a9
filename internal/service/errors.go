package serviceerrors

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrContextCanceled    = errors.New("context canceled")
	ErrDeadlineExceeded   = errors.New("deadline exceeded")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrUnexpectedResponse = errors.New("unexpected backend response")
	ErrRejected           = errors.New("rejected by backend")
	ErrNoSession          = errors.New("no active session")
	ErrSessionExpired     = errors.New("session expired")
	ErrEmptyCart          = errors.New("cart is empty")
)
