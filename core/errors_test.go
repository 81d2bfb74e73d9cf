package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgentErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *AgentError
		want string
	}{
		{
			name: "op with wrapped error",
			err:  &AgentError{Op: "registry.Discover", Err: errors.New("boom")},
			want: "registry.Discover: boom",
		},
		{
			name: "op with id and wrapped error",
			err:  &AgentError{Op: "resolver.Resolve", ID: "searchFlights", Err: ErrCapabilityNotFound},
			want: "resolver.Resolve [searchFlights]: capability not found",
		},
		{
			name: "message only",
			err:  &AgentError{Kind: "booking", Message: "booking was rejected"},
			want: "booking was rejected",
		},
		{
			name: "kind fallback",
			err:  &AgentError{Kind: "discovery"},
			want: "discovery error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestAgentErrorUnwrap(t *testing.T) {
	err := NewAgentError("planner.Fulfill", "booking", ErrBookingRejected)
	assert.ErrorIs(t, err, ErrBookingRejected)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("wrapped: %w", ErrCapabilityNotFound)))
	assert.True(t, IsNotFound(ErrCapabilityNotFound))
	assert.False(t, IsNotFound(ErrConnectionFailed))
	assert.False(t, IsNotFound(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("search: %w", ErrConnectionFailed)))
	assert.True(t, IsRetryable(ErrTimeout))
	assert.True(t, IsRetryable(ErrRegistryUnavailable))
	assert.False(t, IsRetryable(ErrCapabilityNotFound))
	assert.False(t, IsRetryable(nil))
}
