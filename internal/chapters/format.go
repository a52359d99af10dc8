package chapters

import (
	"fmt"
	"strings"

	"github.com/Loxed/youtube-video-tracker/internal/domain"
)

// FormatText renders chapters as "<timestamp> <title>" lines, the format
// accepted back by manual import.
func FormatText(chapters []domain.Chapter) string {
	lines := make([]string, len(chapters))
	for i, ch := range chapters {
		lines[i] = ch.Timestamp + " " + ch.Title
	}
	return strings.Join(lines, "\n")
}

// FormatClock renders seconds as h:mm:ss, or m:ss under an hour.
// Fractions are dropped.
func FormatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
