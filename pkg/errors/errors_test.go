package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExternalErrorWrapsCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewExternalError("failed to get from cache", cause)

	assert.Equal(t, ErrorTypeExternal, err.Type)
	assert.Equal(t, "EXTERNAL: failed to get from cache: connection refused", err.Error())
	assert.True(t, errors.Is(err, cause))
}

func TestAppErrorTypeSurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("search failed: %w", NewExternalError("failed to set in cache", errors.New("broken pipe")))

	var appErr *AppError
	require.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, ErrorTypeExternal, appErr.Type)
}

func TestErrorWithoutCauseOmitsSuffix(t *testing.T) {
	err := NewNotFoundError("provider 42 not found")

	assert.Equal(t, "NOT_FOUND: provider 42 not found", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}
