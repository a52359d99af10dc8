package chapters

import (
	"regexp"
	"strings"

	"github.com/Loxed/youtube-video-tracker/internal/domain"
)

var genericPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(chapter|part|section|lesson|episode)\s+\d+$`),
	regexp.MustCompile(`(?i)^(chapter|part)\s+(one|two|three|four|five|six|seven|eight|nine|ten)$`),
	regexp.MustCompile(`(?i)^(untitled|timestamp|tbd|todo)$`),
	regexp.MustCompile(`^\d+$`),
	regexp.MustCompile(`^[\d\s.:-]+$`),
}

// IsGenericName returns true if the chapter title is a placeholder.
func IsGenericName(name string) bool {
	name = strings.TrimSpace(name)

	if name == "" {
		return true
	}

	for _, pattern := range genericPatterns {
		if pattern.MatchString(name) {
			return true
		}
	}

	return false
}

// AnalyzeChapters reports how many titles are placeholders. Imports where
// most titles are generic are flagged so the user can fix them before saving.
func AnalyzeChapters(chapters []domain.Chapter) AnalysisResult {
	if len(chapters) == 0 {
		return AnalysisResult{}
	}

	generic := 0
	for _, ch := range chapters {
		if IsGenericName(ch.Title) {
			generic++
		}
	}

	percent := float64(generic) / float64(len(chapters))

	return AnalysisResult{
		Total:          len(chapters),
		GenericCount:   generic,
		GenericPercent: percent,
		NeedsUpdate:    percent > 0.5,
	}
}
