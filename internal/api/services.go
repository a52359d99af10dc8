package api

import (
	"github.com/Loxed/youtube-video-tracker/internal/search"
	"github.com/Loxed/youtube-video-tracker/internal/service"
)

// Services groups all business logic services used by the API server.
type Services struct {
	Course   *service.CourseService
	Playback *service.PlaybackService
	Search   *search.SearchIndex // Full-text course search
}
