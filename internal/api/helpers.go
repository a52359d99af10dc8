package api

import (
	"github.com/Loxed/youtube-video-tracker/internal/domain"
	"github.com/Loxed/youtube-video-tracker/internal/service"
)

// MessageResponse contains a simple message in API responses.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps the message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// ChapterResponse is one chapter with its progress merged in.
type ChapterResponse struct {
	Index     int                 `json:"index" doc:"Position in the chapter list"`
	Title     string              `json:"title" doc:"Chapter title"`
	Timestamp string              `json:"timestamp" doc:"Timestamp as written in the description"`
	Seconds   int                 `json:"seconds" doc:"Start offset in seconds"`
	Duration  *int                `json:"duration" doc:"Length in seconds; null until the video length is known"`
	State     domain.ChapterState `json:"state" doc:"not_started, in_progress or completed"`
	Completed bool                `json:"completed" doc:"Whether the chapter is complete"`
	WatchTime float64             `json:"watchTime" doc:"Furthest point reached, in seconds from chapter start"`
}

// CourseResponse is a course with per-chapter progress.
type CourseResponse struct {
	service.CourseSummary
	Description string            `json:"description" doc:"Video description the chapters were parsed from"`
	Chapters    []ChapterResponse `json:"chapters" doc:"Chapters in playback order"`
}

func toCourseResponse(c *domain.CourseRecord) CourseResponse {
	chapters := make([]ChapterResponse, len(c.Chapters))
	for i, ch := range c.Chapters {
		p := c.ProgressAt(i)
		chapters[i] = ChapterResponse{
			Index:     i,
			Title:     ch.Title,
			Timestamp: ch.Timestamp,
			Seconds:   ch.Seconds,
			Duration:  ch.Duration,
			State:     p.State(),
			Completed: p.Completed,
			WatchTime: p.WatchTime,
		}
	}
	return CourseResponse{
		CourseSummary: service.Summarize(c),
		Description:   c.Description,
		Chapters:      chapters,
	}
}
