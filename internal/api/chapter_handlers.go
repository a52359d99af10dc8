package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Loxed/youtube-video-tracker/internal/chapters"
	"github.com/Loxed/youtube-video-tracker/internal/domain"
	domainerrors "github.com/Loxed/youtube-video-tracker/internal/errors"
	"github.com/Loxed/youtube-video-tracker/internal/page"
	"github.com/Loxed/youtube-video-tracker/internal/service"
)

func (s *Server) registerChapterRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "previewChapters",
		Method:      http.MethodPost,
		Path:        "/api/v1/chapters/preview",
		Summary:     "Preview chapter import",
		Description: "Parses pasted chapter text without storing anything",
		Tags:        []string{"Chapters"},
	}, s.handlePreviewChapters)

	huma.Register(s.api, huma.Operation{
		OperationID: "parseWatchPage",
		Method:      http.MethodPost,
		Path:        "/api/v1/pages/parse",
		Summary:     "Parse watch page",
		Description: "Reads the video ID, title and description from watch page HTML and parses its chapters",
		Tags:        []string{"Chapters"},
	}, s.handleParsePage)
}

// === DTOs ===

// PreviewChaptersRequest is the request body for previewing an import.
type PreviewChaptersRequest struct {
	Text    string `json:"text" doc:"Pasted chapter list"`
	Editing bool   `json:"editing,omitempty" doc:"Editing existing chapters, where saving none clears them"`
}

// PreviewChaptersInput wraps the preview request for Huma.
type PreviewChaptersInput struct {
	Body PreviewChaptersRequest
}

// PreviewChaptersOutput wraps the preview for Huma.
type PreviewChaptersOutput struct {
	Body service.ImportPreview
}

// ParsePageRequest is the request body for parsing a watch page.
type ParsePageRequest struct {
	HTML string `json:"html" minLength:"1" doc:"Watch page HTML"`
}

// ParsePageInput wraps the parse request for Huma.
type ParsePageInput struct {
	Body ParsePageRequest
}

// ParsePageResponse is what a watch page yields.
type ParsePageResponse struct {
	page.WatchPage
	Chapters []domain.Chapter `json:"chapters" doc:"Chapters parsed from the description"`
}

// ParsePageOutput wraps the parse response for Huma.
type ParsePageOutput struct {
	Body ParsePageResponse
}

// === Handlers ===

func (s *Server) handlePreviewChapters(_ context.Context, input *PreviewChaptersInput) (*PreviewChaptersOutput, error) {
	return &PreviewChaptersOutput{Body: s.services.Course.PreviewImport(input.Body.Text, input.Body.Editing)}, nil
}

func (s *Server) handleParsePage(_ context.Context, input *ParsePageInput) (*ParsePageOutput, error) {
	wp, err := page.ParseWatchPage([]byte(input.Body.HTML))
	if err != nil {
		return nil, domainerrors.Validationf("unreadable watch page: %v", err)
	}
	wp.Description = page.DescriptionText(wp.Description)

	return &ParsePageOutput{Body: ParsePageResponse{
		WatchPage: wp,
		Chapters:  chapters.Extract(wp.Description),
	}}, nil
}
