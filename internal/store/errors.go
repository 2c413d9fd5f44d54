package store

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidBundle = errors.New("credential bundle has no access token")
	ErrUnknownStore  = errors.New("unknown store type")
)

// StoreError indicates a backend failure while touching a single key.
type StoreError struct {
	Operation string
	Key       string
	Cause     error
}

func (e *StoreError) Error() string {
	msg := e.Operation + " " + e.Key
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// CorruptedStateError reports a persisted record that could not be parsed.
// It is logged and recovered from locally, never returned to callers.
type CorruptedStateError struct {
	Key Key
	Err error
}

func (e *CorruptedStateError) Error() string {
	return fmt.Sprintf("corrupted record in %q: %v", string(e.Key), e.Err)
}

func (e *CorruptedStateError) Unwrap() error {
	return e.Err
}
