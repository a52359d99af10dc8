package api

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getFixturePath returns the repository's shared envelope fixtures.
func getFixturePath(t *testing.T) string {
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "Failed to get caller info")

	root := filepath.Dir(filepath.Dir(filepath.Dir(filename)))
	return filepath.Join(root, "testdata", "envelope")
}

func transformToMap(t *testing.T, status string, v any) map[string]any {
	t.Helper()

	result, err := EnvelopeTransformer(nil, status, v)
	require.NoError(t, err)

	b, err := json.Marshal(result)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestEnvelopeTransformer_AlwaysIncludesVersion(t *testing.T) {
	tests := []struct {
		name   string
		status string
		input  any
	}{
		{"success response", "200", map[string]string{"key": "value"}},
		{"created response", "201", map[string]string{"videoId": "abc"}},
		{"no content response", "204", nil},
		{"plain error", "500", errors.New("internal error")},
		{"api error", "409", &APIError{Code: "ALREADY_EXISTS", Message: "exists"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envelope := transformToMap(t, tt.status, tt.input)
			require.Contains(t, envelope, "v")
			assert.Equal(t, float64(EnvelopeVersion), envelope["v"])
			assert.NotContains(t, envelope, "version")
		})
	}
}

func TestEnvelopeTransformer_ErrorResponse(t *testing.T) {
	envelope := transformToMap(t, "404", &APIError{Code: "NOT_FOUND", Message: "course abc not found"})

	assert.Equal(t, false, envelope["success"])
	assert.NotContains(t, envelope, "data")

	body, ok := envelope["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", body["code"])
	assert.Equal(t, "course abc not found", body["message"])
	assert.NotContains(t, body, "details")
}

func TestEnvelopeTransformer_PlainError(t *testing.T) {
	envelope := transformToMap(t, "500", errors.New("boom"))

	body := envelope["error"].(map[string]any)
	assert.Equal(t, "INTERNAL", body["code"])
	assert.Equal(t, "boom", body["message"])
}

func TestEnvelopeContract_MatchesFixtures(t *testing.T) {
	tests := []struct {
		fixture string
		status  string
		input   any
	}{
		{
			fixture: "success.json",
			status:  "200",
			input:   map[string]string{"videoId": "dQw4w9WgXcQ", "title": "Go in One Video"},
		},
		{
			fixture: "error.json",
			status:  "409",
			input: &APIError{
				Code:    "ALREADY_EXISTS",
				Message: "course dQw4w9WgXcQ is already tracked",
				Details: map[string]string{"videoId": "dQw4w9WgXcQ"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.fixture, func(t *testing.T) {
			fixtureBytes, err := os.ReadFile(filepath.Join(getFixturePath(t), tt.fixture))
			require.NoError(t, err, "contract tests require the shared fixtures")

			var expected map[string]any
			require.NoError(t, json.Unmarshal(fixtureBytes, &expected))

			assert.Equal(t, expected, transformToMap(t, tt.status, tt.input))
		})
	}
}
