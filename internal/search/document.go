// Package search provides full-text search over tracked courses using Bleve.
// A course is found by its title, its chapter titles, or its description.
package search

import (
	"strings"

	"github.com/Loxed/youtube-video-tracker/internal/domain"
)

// CourseDocument is the indexed form of a course record.
//
// Chapter titles are flattened into one text field so a single match query
// covers the whole outline.
type CourseDocument struct {
	ID           string  `json:"id"` // Video ID
	Title        string  `json:"title"`
	TitleKey     string  `json:"title_key"` // lowercased title
	Chapters     string  `json:"chapters,omitempty"`
	Description  string  `json:"description,omitempty"`
	ChapterCount int     `json:"chapter_count"`
	Progress     float64 `json:"progress"` // Percent of chapters completed

	// Timestamps for sorting
	DateAdded    int64 `json:"date_added"`    // Unix millis
	LastActivity int64 `json:"last_activity"` // Unix millis
}

// ToMap converts the document to a map with lowercase field names.
// This ensures field names match the Bleve index mapping.
func (d *CourseDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":            d.ID,
		"title":         d.Title,
		"title_key":     d.TitleKey,
		"chapter_count": d.ChapterCount,
		"progress":      d.Progress,
		"date_added":    d.DateAdded,
		"last_activity": d.LastActivity,
	}

	// Optional fields - only add if non-empty
	if d.Chapters != "" {
		m["chapters"] = d.Chapters
	}
	if d.Description != "" {
		m["description"] = d.Description
	}

	return m
}

// CourseToDocument converts a course record to its indexed form.
func CourseToDocument(c *domain.CourseRecord) *CourseDocument {
	titles := make([]string, 0, len(c.Chapters))
	for _, ch := range c.Chapters {
		titles = append(titles, ch.Title)
	}

	return &CourseDocument{
		ID:           c.VideoID,
		Title:        c.Title,
		TitleKey:     strings.ToLower(c.Title),
		Chapters:     strings.Join(titles, "\n"),
		Description:  c.Description,
		ChapterCount: len(c.Chapters),
		Progress:     c.ProgressPercent(),
		DateAdded:    c.DateAdded.UnixMilli(),
		LastActivity: c.LastActivity().UnixMilli(),
	}
}
