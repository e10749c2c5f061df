package scan

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := NewError(CodeVideoNotFound, "video %s not found", "abc123")
	assert.Equal(t, "VideoNotFound: video abc123 not found", err.Error())
}

func TestWrapErrorUnwraps(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := WrapError(CodeUpstreamError, cause, "metadata fetch failed")

	assert.Contains(t, err.Error(), "connection reset")
	assert.ErrorIs(t, err, cause)

	var scanErr *Error
	require.ErrorAs(t, error(err), &scanErr)
	assert.Equal(t, CodeUpstreamError, scanErr.Code)
}

func TestErrorsAsThroughWrapping(t *testing.T) {
	inner := NewError(CodeExtractionFailed, "job timed out")
	outer := fmt.Errorf("scan aborted: %w", inner)

	var scanErr *Error
	require.True(t, errors.As(outer, &scanErr))
	assert.Equal(t, CodeExtractionFailed, scanErr.Code)
}
