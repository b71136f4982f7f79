// Package core provides the tiered cache facade and its configuration.
package core

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrInvalidConfig indicates that the provided configuration is invalid.
	// Configuration errors are fatal at construction time.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidArgument indicates an invalid call argument, such as an
	// empty query vector or k < 1.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoArchiver indicates a cold-tier archive operation on a cache
	// constructed without an archiver.
	ErrNoArchiver = errors.New("no archiver configured")
)

// CacheError wraps errors with operation context.
//
// Example:
//
//	err := &CacheError{Op: "Retrieve", Err: ErrInvalidArgument}
//	// Error() returns: "tieredmem: Retrieve: invalid argument"
type CacheError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
func (e *CacheError) Error() string {
	return fmt.Sprintf("tieredmem: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error so errors.Is and errors.As work
// through CacheError.
func (e *CacheError) Unwrap() error {
	return e.Err
}

// NewCacheError creates a CacheError wrapping the given error, or nil if
// err is nil.
func NewCacheError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CacheError{Op: op, Err: err}
}
