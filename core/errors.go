package core

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for comparison using errors.Is()
// These are generic errors that can be wrapped with additional context
var (
	// Discovery-related errors
	ErrInvalidDescriptor   = errors.New("invalid agent card")
	ErrRegistryEmpty       = errors.New("no services discovered")
	ErrRegistryUnavailable = errors.New("registry unavailable")

	// Capability-related errors
	ErrCapabilityNotFound = errors.New("capability not found")

	// Fulfillment errors
	ErrMissingEntities   = errors.New("missing required information")
	ErrMalformedResponse = errors.New("malformed response")
	ErrBookingRejected   = errors.New("booking not confirmed")
	ErrNoIntents         = errors.New("no usable intents")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// HTTP/Network errors
	ErrConnectionFailed = errors.New("connection failed")
	ErrRequestFailed    = errors.New("request failed")
	ErrTimeout          = errors.New("operation timeout")
)

// AgentError provides structured error information with context.
// It implements the error interface and supports error wrapping.
type AgentError struct {
	Op      string // Operation that failed (e.g., "registry.Discover")
	Kind    string // Error kind (e.g., "discovery", "resolution", "booking")
	ID      string // Optional ID of the entity involved
	Message string // Human-readable message
	Err     error  // Underlying error for wrapping
}

// Error returns the string representation of the error
func (e *AgentError) Error() string {
	if e.Op != "" && e.Err != nil {
		if e.ID != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *AgentError) Unwrap() error {
	return e.Err
}

// NewAgentError creates a new AgentError
func NewAgentError(op, kind string, err error) *AgentError {
	return &AgentError{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// IsNotFound checks if an error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCapabilityNotFound)
}

// IsRetryable checks if an error is a transient network or availability issue.
// The planner never retries within a request, but callers of the registry may.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConnectionFailed) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRegistryUnavailable)
}
