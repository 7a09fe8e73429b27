package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Creation(t *testing.T) {
	cause := errors.New("underlying error")

	err := NewConfigError("test config error", cause)

	assert.Equal(t, ErrorTypeConfig, err.Type)
	assert.Equal(t, "test config error", err.Message)
	assert.Equal(t, cause, err.Cause)
	assert.NotNil(t, err.Context)
}

func TestDomainError_WithContext(t *testing.T) {
	err := NewLaunchError("test error", nil)

	err = err.WithContext("service", "engine")
	err = err.WithContext("pid", 12345)

	assert.Equal(t, "engine", err.Context["service"])
	assert.Equal(t, 12345, err.Context["pid"])
}

func TestDomainError_ErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		error    *DomainError
		expected string
	}{
		{
			name:     "error without cause",
			error:    NewConfigError("test message", nil),
			expected: "config: test message",
		},
		{
			name:     "error with cause",
			error:    NewLaunchError("test message", errors.New("cause")),
			expected: "launch: test message: cause",
		},
		{
			name:     "readiness timeout",
			error:    NewReadinessTimeoutError("service never became ready", nil),
			expected: "readiness_timeout: service never became ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.error.Error())
		})
	}
}

func TestDomainError_TypeChecking(t *testing.T) {
	configErr := NewConfigError("config error", nil)
	launchErr := NewLaunchError("launch error", nil)
	exitErr := NewUnexpectedExitError("exit error", nil)

	assert.True(t, IsConfigError(configErr))
	assert.False(t, IsConfigError(launchErr))

	assert.True(t, IsLaunchError(launchErr))
	assert.False(t, IsLaunchError(configErr))

	assert.True(t, IsUnexpectedExitError(exitErr))
	assert.False(t, IsUnexpectedExitError(launchErr))

	// Test with wrapped errors
	wrappedErr := errors.New("wrapped")
	assert.False(t, IsConfigError(wrappedErr))
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := NewReclaimError("test error", cause)

	unwrapped := errors.Unwrap(err)
	assert.Equal(t, cause, unwrapped)
}

func TestErrorCollection(t *testing.T) {
	collection := NewErrorCollection()
	assert.False(t, collection.HasErrors())
	assert.NoError(t, collection.ToError())

	collection.Add(nil)
	assert.False(t, collection.HasErrors())

	collection.Add(NewLaunchError("first", nil))
	collection.Add(NewReclaimError("second", nil))
	assert.True(t, collection.HasErrors())
	assert.Error(t, collection.ToError())
	assert.Len(t, collection.Errors, 2)
}
