package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that the referenced todo id does not exist.
var ErrNotFound = errors.New("todo not found")

// ValidationError indicates malformed or missing required input.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// StoreUnavailableError indicates that the persistence backend could not
// be reached or did not respond.
type StoreUnavailableError struct {
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable: %v", e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }
