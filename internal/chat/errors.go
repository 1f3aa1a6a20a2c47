package chat

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput is returned when the message is empty after trimming.
	ErrInvalidInput = errors.New("chat: message is required")

	// ErrUserNotFound is returned when the user has no record in the identity store.
	ErrUserNotFound = errors.New("chat: user not found")

	// ErrModelUnavailable is returned when no candidate model answered a probe.
	ErrModelUnavailable = errors.New("chat: no available models")

	// ErrEmptyModelResponse is returned when the remote call succeeded without usable text.
	ErrEmptyModelResponse = errors.New("chat: empty response from AI")
)

// StoreError reports a persistence failure. It is always fatal to the request.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("chat: store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// CompletionError wraps any failure that happened after the user turn was staged.
// The staged turn has been rolled back unless Err also carries a rollback StoreError.
type CompletionError struct {
	Model string
	Err   error
}

func (e *CompletionError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("chat: completion failed: %v", e.Err)
	}
	return fmt.Sprintf("chat: completion failed on %s: %v", e.Model, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// modelFailure reports whether err points at the model itself or its quota,
// in which case the cached handle should not be reused.
func modelFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrModelUnavailable) {
		return true
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "model") || strings.Contains(msg, "quota")
}
