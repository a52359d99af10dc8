package chapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatText_RoundTripsThroughExtract(t *testing.T) {
	original := Extract("0:00 Intro\n[4:10] Goroutines\n1:02:03 Deep Dive")

	text := FormatText(original)

	assert.Equal(t, "0:00 Intro\n4:10 Goroutines\n1:02:03 Deep Dive", text)
	assert.Equal(t, original, Extract(text))
}

func TestFormatText_Empty(t *testing.T) {
	assert.Empty(t, FormatText(nil))
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00"},
		{59.9, "0:59"},
		{61, "1:01"},
		{3599, "59:59"},
		{3600, "1:00:00"},
		{3723.5, "1:02:03"},
		{-5, "0:00"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatClock(tt.seconds))
		})
	}
}
