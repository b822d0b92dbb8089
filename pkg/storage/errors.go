package storage

import (
	"errors"
	"fmt"
)

var (
	ErrAuthFailed    = errors.New("authentication failed")
	ErrConnFailed    = errors.New("connection failed")
	ErrNotFound      = errors.New("file not found")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrSizeMismatch  = errors.New("stored size does not match local file")
)

// WrapError adds context to an error
func WrapError(backend, operation string, err error) error {
	return fmt.Errorf("%s (%s): %w", operation, backend, err)
}
