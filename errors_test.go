package jdcompare

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorCategories(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name      string
		err       *Error
		category  ErrorCategory
		retryable bool
	}{
		{"transient", NewTransientError("rate limited", 429, cause), ErrorTransient, true},
		{"permanent", NewPermanentError("unauthorized", 401, cause), ErrorPermanent, false},
		{"user input", NewUserInputError("bad request", 400, cause), ErrorUserInput, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category())
			assert.Equal(t, tt.retryable, tt.err.Retryable())
			assert.Equal(t, tt.retryable, IsTransient(tt.err))
			assert.ErrorIs(t, tt.err, cause)
		})
	}
}

func TestErrorMessage(t *testing.T) {
	t.Run("includes cause", func(t *testing.T) {
		err := NewTransientError("stream failed", 503, errors.New("upstream down"))
		assert.Equal(t, "stream failed: upstream down", err.Error())
	})

	t.Run("does not repeat identical cause", func(t *testing.T) {
		cause := errors.New("upstream down")
		err := NewTransientError(cause.Error(), 503, cause)
		assert.Equal(t, "upstream down", err.Error())
	})

	t.Run("without cause", func(t *testing.T) {
		err := &Error{Msg: "plain", Cat: ErrorPermanent}
		assert.Equal(t, "plain", err.Error())
	})
}

func TestErrorMetadataThroughWrapping(t *testing.T) {
	err := NewTransientErrorWithRetry("slow down", 429, 3*time.Second, nil)
	wrapped := fmt.Errorf("opening stream: %w", err)

	assert.True(t, IsTransient(wrapped))
	assert.False(t, IsPermanent(wrapped))
	assert.False(t, IsUserInput(wrapped))
	assert.Equal(t, 429, StatusCodeOf(wrapped))
	assert.Equal(t, 3*time.Second, RetryAfterOf(wrapped))

	plain := errors.New("plain")
	assert.Equal(t, 0, StatusCodeOf(plain))
	assert.Zero(t, RetryAfterOf(plain))
	assert.False(t, IsTransient(plain))
}

type markedConfigError struct{}

func (markedConfigError) Error() string            { return "no key" }
func (markedConfigError) ConfigurationError() bool { return true }

func TestConfigurationError(t *testing.T) {
	t.Run("message names provider", func(t *testing.T) {
		err := &ConfigurationError{Provider: "mistral", Reason: "unknown provider"}
		assert.Equal(t, `provider "mistral": unknown provider`, err.Error())
	})

	t.Run("message without provider", func(t *testing.T) {
		err := &ConfigurationError{Reason: "no providers configured"}
		assert.Equal(t, "no providers configured", err.Error())
	})

	t.Run("detected through wrapping", func(t *testing.T) {
		err := fmt.Errorf("resolve: %w", &ConfigurationError{Provider: "x", Reason: "unknown provider"})
		assert.True(t, IsConfiguration(err))
	})

	t.Run("detected through marker method", func(t *testing.T) {
		assert.True(t, IsConfiguration(fmt.Errorf("wrap: %w", markedConfigError{})))
	})

	t.Run("other errors are not configuration errors", func(t *testing.T) {
		assert.False(t, IsConfiguration(errors.New("boom")))
		assert.False(t, IsConfiguration(NewPermanentError("denied", 403, nil)))
	})
}

func TestValidationError(t *testing.T) {
	cause := errors.New("invalid UUID length: 3")
	err := &ValidationError{Field: "workspace id", Value: "abc", Err: cause}

	assert.Equal(t, `invalid workspace id "abc": invalid UUID length: 3`, err.Error())
	assert.ErrorIs(t, err, cause)
}
