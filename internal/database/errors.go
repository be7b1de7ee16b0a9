package databaseerrors

import "errors"

var (
	ErrNotFound = errors.New("not found")
)
