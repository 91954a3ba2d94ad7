package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoin(t *testing.T) {
	tests := []struct {
		name     string
		prefixes []string
		expected string
	}{
		{name: "no prefixes", prefixes: nil, expected: ""},
		{name: "single prefix", prefixes: []string{"embedding"}, expected: "embedding."},
		{name: "two prefixes", prefixes: []string{"a", "b"}, expected: "a.b."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Join(tt.prefixes...))
		})
	}
}
