package biz

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailure_UserMessage(t *testing.T) {
	tests := []struct {
		kind     FailureKind
		expected string
	}{
		{FailureEmbedding, msgEmbeddingUnavailable},
		{FailureIndex, msgIndexUnavailable},
		{FailureEmptyIndex, msgEmptyIndex},
		{FailureNoUsableMatches, msgNoUsableMatches},
		{FailureGeneration, msgGenerationFailed},
		{FailureEmptyGeneration, msgEmptyGeneration},
		{FailureConfiguration, msgConfigurationError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			f := NewFailure(tt.kind, fmt.Errorf("internal detail"))
			msg := f.UserMessage()
			assert.Equal(t, tt.expected, msg)
			// The cause never leaks into the user-facing text.
			assert.NotContains(t, msg, "internal detail")
		})
	}
}

func TestFailure_ErrorAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	f := NewFailure(FailureIndex, cause)

	assert.Contains(t, f.Error(), "index_unavailable")
	assert.Contains(t, f.Error(), "connection refused")
	assert.True(t, errors.Is(f, cause))

	noCause := NewFailure(FailureEmptyIndex, nil)
	assert.Equal(t, "empty_index", noCause.Error())
}

func TestAsFailure(t *testing.T) {
	f := NewFailure(FailureEmbedding, nil)
	assert.Same(t, f, AsFailure(f))

	wrapped := fmt.Errorf("outer: %w", NewFailure(FailureEmptyIndex, nil))
	assert.Equal(t, FailureEmptyIndex, AsFailure(wrapped).Kind)

	// Unclassified errors default to a generation failure.
	plain := AsFailure(fmt.Errorf("something else"))
	require.NotNil(t, plain)
	assert.Equal(t, FailureGeneration, plain.Kind)
}

func TestFailureKind_String(t *testing.T) {
	assert.Equal(t, "embedding_unavailable", FailureEmbedding.String())
	assert.Equal(t, "no_usable_matches", FailureNoUsableMatches.String())
	assert.Equal(t, "unknown", FailureKind(99).String())
}
