package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for range 500 {
		got, err := Generate(PrefixSession)
		require.NoError(t, err)
		assert.False(t, seen[got], "duplicate ID: %s", got)
		seen[got] = true
	}
}

func TestGenerate_Format(t *testing.T) {
	for _, prefix := range []string{PrefixSession, PrefixClient} {
		t.Run(prefix, func(t *testing.T) {
			got, err := Generate(prefix)
			require.NoError(t, err)

			require.True(t, strings.HasPrefix(got, prefix+"-"))
			body := strings.TrimPrefix(got, prefix+"-")
			assert.Len(t, body, 21)
			for _, r := range body {
				ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-'
				assert.True(t, ok, "unexpected rune %q in %s", r, got)
			}
		})
	}
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.True(t, strings.HasPrefix(MustGenerate(PrefixClient), "sse-"))
	})
}
