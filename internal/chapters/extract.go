package chapters

import (
	"iter"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/Loxed/youtube-video-tracker/internal/domain"
)

// Title prefixes stripped in order after the timestamp is removed.
var titlePrefixes = []*regexp.Regexp{
	regexp.MustCompile(`^[-–—•*]\s*`),
	regexp.MustCompile(`^\d+\.\s*`),
	regexp.MustCompile(`(?i)^chapter\s*\d+:?\s*`),
	regexp.MustCompile(`(?i)^part\s*\d+:?\s*`),
}

// minTitleRunes is the shortest title kept; anything shorter is a bare timestamp.
const minTitleRunes = 3

// Candidate is one timestamp considered during extraction.
type Candidate struct {
	Line     int
	Match    Match
	Title    string
	Accepted bool
}

// Extract parses description text into chapters sorted by start offset,
// with at most one chapter per offset (first occurrence wins) and durations
// derived from the following chapter. The last chapter's duration is nil.
//
// Text without usable timestamps yields an empty, non-nil slice.
func Extract(description string) []domain.Chapter {
	var out []domain.Chapter
	for c := range Candidates(description) {
		if c.Accepted {
			out = append(out, domain.Chapter{
				Title:     c.Title,
				Timestamp: c.Match.Display(),
				Seconds:   c.Match.TotalSeconds(),
			})
		}
	}
	return Normalize(out)
}

// Candidates yields every timestamp found in description, in line order
// and then match order, with the title derived for it.
func Candidates(description string) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		for i, raw := range strings.Split(description, "\n") {
			line := strings.TrimSpace(raw)
			if line == "" {
				continue
			}
			for m := range Scan(line) {
				title := deriveTitle(line, m)
				c := Candidate{
					Line:     i,
					Match:    m,
					Title:    title,
					Accepted: utf8.RuneCountInString(title) >= minTitleRunes,
				}
				if !yield(c) {
					return
				}
			}
		}
	}
}

func deriveTitle(line string, m Match) string {
	title := strings.TrimSpace(line[:m.Start] + line[m.End:])
	for _, prefix := range titlePrefixes {
		if loc := prefix.FindStringIndex(title); loc != nil {
			title = title[loc[1]:]
		}
	}
	return strings.TrimSpace(title)
}

// Normalize drops repeated offsets keeping the first, sorts ascending by
// offset, and assigns durations.
func Normalize(chapters []domain.Chapter) []domain.Chapter {
	seen := make(map[int]bool, len(chapters))
	out := make([]domain.Chapter, 0, len(chapters))
	for _, ch := range chapters {
		if seen[ch.Seconds] {
			continue
		}
		seen[ch.Seconds] = true
		out = append(out, ch)
	}

	slices.SortStableFunc(out, func(a, b domain.Chapter) int {
		return a.Seconds - b.Seconds
	})

	AssignDurations(out)
	return out
}

// AssignDurations sets each chapter's duration to the gap before the next
// one, clamped at zero. The last chapter's duration is reset to nil.
func AssignDurations(chapters []domain.Chapter) {
	for i := range chapters {
		if i == len(chapters)-1 {
			chapters[i].Duration = nil
			break
		}
		chapters[i].Duration = domain.DurationOf(max(chapters[i+1].Seconds-chapters[i].Seconds, 0))
	}
}

// Extractor wraps Extract with debug tracing of accepted and rejected candidates.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an extractor that traces to logger.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{logger: logger}
}

// Extract parses description exactly like the package-level Extract.
func (e *Extractor) Extract(description string) []domain.Chapter {
	accepted, rejected := 0, 0
	for c := range Candidates(description) {
		if c.Accepted {
			accepted++
			continue
		}
		rejected++
		e.logger.Debug("timestamp rejected, title too short",
			"line", c.Line,
			"timestamp", c.Match.Text,
			"title", c.Title,
		)
	}

	chapters := Extract(description)
	e.logger.Debug("chapters extracted",
		"chars", len(description),
		"candidates", accepted+rejected,
		"rejected", rejected,
		"chapters", len(chapters),
	)
	return chapters
}
