package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_FormatSelection(t *testing.T) {
	tests := []struct {
		name        string
		format      string
		environment string
		wantJSON    bool
	}{
		{name: "production defaults to json", environment: "production", wantJSON: true},
		{name: "development defaults to pretty", environment: "development", wantJSON: false},
		{name: "explicit json wins over environment", format: "json", environment: "development", wantJSON: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Writer: &buf, Format: tt.format, Environment: tt.environment, Level: slog.LevelInfo})
			log.Info("course added")

			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"msg":"course added"`)
			} else {
				assert.Contains(t, buf.String(), "INF")
				assert.Contains(t, buf.String(), "course added")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"Error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestPrettyHandler_Attributes(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	log := slog.New(h.WithAttrs([]slog.Attr{slog.String("component", "tracker")}))

	log.Debug("chapter changed", "from", 0, "to", 2)

	out := buf.String()
	assert.Contains(t, out, "DBG")
	assert.Contains(t, out, "component=tracker")
	assert.Contains(t, out, "from=0")
	assert.Contains(t, out, "to=2")
}

func TestPrettyHandler_Enabled(t *testing.T) {
	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
	assert.Same(t, h, h.WithGroup(""))
}

func TestFormatValue(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "5s", formatValue(slog.DurationValue(5*time.Second)))
	assert.Equal(t, now.Format(time.RFC3339), formatValue(slog.TimeValue(now)))
	assert.Equal(t, "42", formatValue(slog.IntValue(42)))
}

func TestFormatValue_QuotesSpacedStrings(t *testing.T) {
	assert.Equal(t, "Intro", formatValue(slog.StringValue("Intro")))
	assert.Equal(t, `"Getting Started"`, formatValue(slog.StringValue("Getting Started")))
}

func TestPrettyHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	log.WithGroup("sse").With("clients", 3).Debug("event broadcast",
		slog.Group("stats", slog.Int("delivered", 2), slog.Int("dropped", 0)))

	out := buf.String()
	assert.Contains(t, out, "sse.clients=3")
	assert.Contains(t, out, "sse.stats.delivered=2")
	assert.Contains(t, out, "sse.stats.dropped=0")
}

func TestScopedLoggers(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Writer: &buf, Format: "json", Level: slog.LevelInfo}).Logger

	WithVideo(base, "dQw4w9WgXcQ").Warn("save failed", Err(errors.New("disk full")))
	WithSession(base, "ps-abc", "vid123").Info("position")

	out := buf.String()
	assert.Contains(t, out, `"video_id":"dQw4w9WgXcQ"`)
	assert.Contains(t, out, `"error":"disk full"`)
	assert.Contains(t, out, `"session_id":"ps-abc"`)
	assert.Contains(t, out, `"video_id":"vid123"`)
}

func TestScopedLoggers_PrettyHighlightsVideo(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(NewPrettyHandler(&buf, nil))

	WithVideo(base, "abc123").Info("course added")

	assert.Contains(t, buf.String(), colorYellow+"video_id=abc123")
}

func TestErr_Nil(t *testing.T) {
	a := Err(nil)
	assert.Equal(t, KeyError, a.Key)
	assert.Nil(t, a.Value.Any())
}

func TestDiscard(t *testing.T) {
	log := Discard()
	assert.NotNil(t, log)
	assert.False(t, log.Enabled(context.Background(), slog.LevelError))
}
