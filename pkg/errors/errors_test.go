package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_ErrorIncludesCause(t *testing.T) {
	err := Wrap(fmt.Errorf("boom"), "X", "it failed", http.StatusTeapot)
	assert.Equal(t, "it failed: boom", err.Error())

	plain := New("X", "plain", http.StatusTeapot)
	assert.Equal(t, "plain", plain.Error())
}

func TestUnavailable_WrapsSentinelAndCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Unavailable("stock lookup failed", cause)

	assert.Equal(t, http.StatusServiceUnavailable, err.StatusCode)
	assert.Equal(t, "SERVICE_UNAVAILABLE", err.Code)
	assert.True(t, Is(err, ErrUnavailable))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsClientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"validation", Validation(map[string]string{"items": "required"}), true},
		{"bad request", BadRequest("nope"), true},
		{"forbidden", Forbidden("no tenant"), true},
		{"internal", Internal("bug"), false},
		{"unavailable", Unavailable("down", fmt.Errorf("x")), false},
		{"plain error", fmt.Errorf("raw"), false},
		{"wrapped validation", fmt.Errorf("ctx: %w", Validation(nil)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsClientError(tt.err))
		})
	}
}

func TestAs_ExtractsAppError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NotFound("plan"))

	var appErr *AppError
	require.True(t, As(wrapped, &appErr))
	assert.Equal(t, "NOT_FOUND", appErr.Code)
	assert.Equal(t, "plan not found", appErr.Message)
	assert.True(t, Is(wrapped, ErrNotFound))
}
