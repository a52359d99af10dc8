package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Loxed/youtube-video-tracker/internal/service"
)

func (s *Server) registerCourseRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listCourses",
		Method:      http.MethodGet,
		Path:        "/api/v1/courses",
		Summary:     "List courses",
		Description: "Returns tracked courses, optionally filtered by a search query",
		Tags:        []string{"Courses"},
	}, s.handleListCourses)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addCourse",
		Method:        http.MethodPost,
		Path:          "/api/v1/courses",
		Summary:       "Add course",
		Description:   "Starts tracking a video and parses chapters from its description",
		Tags:          []string{"Courses"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddCourse)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCourse",
		Method:      http.MethodGet,
		Path:        "/api/v1/courses/{videoId}",
		Summary:     "Get course",
		Description: "Returns a course with per-chapter progress",
		Tags:        []string{"Courses"},
	}, s.handleGetCourse)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeCourse",
		Method:      http.MethodDelete,
		Path:        "/api/v1/courses/{videoId}",
		Summary:     "Remove course",
		Description: "Stops tracking a video and discards its progress",
		Tags:        []string{"Courses"},
	}, s.handleRemoveCourse)

	huma.Register(s.api, huma.Operation{
		OperationID: "importChapters",
		Method:      http.MethodPost,
		Path:        "/api/v1/courses/{videoId}/chapters",
		Summary:     "Import chapters",
		Description: "Replaces a course's chapters with ones parsed from pasted text and resets progress",
		Tags:        []string{"Courses"},
	}, s.handleImportChapters)

	huma.Register(s.api, huma.Operation{
		OperationID: "getChaptersText",
		Method:      http.MethodGet,
		Path:        "/api/v1/courses/{videoId}/chapters/text",
		Summary:     "Get chapters as text",
		Description: "Returns the course's chapters in the import format for editing",
		Tags:        []string{"Courses"},
	}, s.handleChaptersText)

	huma.Register(s.api, huma.Operation{
		OperationID: "reparseDescription",
		Method:      http.MethodPost,
		Path:        "/api/v1/courses/{videoId}/reparse",
		Summary:     "Reparse description",
		Description: "Drops imported chapters and parses the stored description again",
		Tags:        []string{"Courses"},
	}, s.handleReparse)

	huma.Register(s.api, huma.Operation{
		OperationID: "cleanupCourses",
		Method:      http.MethodPost,
		Path:        "/api/v1/maintenance/cleanup",
		Summary:     "Remove stale courses",
		Description: "Deletes courses with no activity in the given number of days",
		Tags:        []string{"Maintenance"},
	}, s.handleCleanup)
}

// === DTOs ===

// ListCoursesInput contains parameters for listing courses.
type ListCoursesInput struct {
	Query string `query:"q" doc:"Search over course and chapter titles"`
	Sort  string `query:"sort" enum:"recent,progress,title,added" doc:"Sort order (default recent)"`
}

// CourseListResponse contains course summaries in API responses.
type CourseListResponse struct {
	Courses []service.CourseSummary `json:"courses" doc:"Course summaries"`
	Total   int                     `json:"total" doc:"Number of courses returned"`
}

// ListCoursesOutput wraps the course list response for Huma.
type ListCoursesOutput struct {
	Body CourseListResponse
}

// AddCourseRequest is the request body for adding a course.
type AddCourseRequest struct {
	VideoID     string `json:"videoId,omitempty" validate:"omitempty,videoid" doc:"YouTube video ID"`
	URL         string `json:"url,omitempty" validate:"omitempty,url" doc:"Watch page URL, used when videoId is absent"`
	Title       string `json:"title,omitempty" validate:"omitempty,max=500" doc:"Video title"`
	Description string `json:"description,omitempty" doc:"Video description text or HTML"`
	HTML        string `json:"html,omitempty" doc:"Watch page HTML to read title and description from"`
}

// AddCourseInput wraps the add course request for Huma.
type AddCourseInput struct {
	Body AddCourseRequest
}

// AddCourseResponse is the added course plus whether chapters must be imported by hand.
type AddCourseResponse struct {
	Course            CourseResponse `json:"course" doc:"The tracked course"`
	NeedsManualImport bool           `json:"needsManualImport" doc:"No timestamps were found in the description"`
}

// AddCourseOutput wraps the add course response for Huma.
type AddCourseOutput struct {
	Body AddCourseResponse
}

// CourseIDInput contains the video ID path parameter.
type CourseIDInput struct {
	VideoID string `path:"videoId" doc:"YouTube video ID"`
}

// CourseOutput wraps a course response for Huma.
type CourseOutput struct {
	Body CourseResponse
}

// ImportChaptersRequest is the request body for importing chapters.
type ImportChaptersRequest struct {
	Text       string `json:"text" doc:"Pasted chapter list, one timestamp per line"`
	AllowClear bool   `json:"allowClear,omitempty" doc:"Clear chapters when the text has no timestamps"`
}

// ImportChaptersInput wraps the import request for Huma.
type ImportChaptersInput struct {
	VideoID string `path:"videoId" doc:"YouTube video ID"`
	Body    ImportChaptersRequest
}

// ChaptersTextResponse contains chapters in import format.
type ChaptersTextResponse struct {
	Text string `json:"text" doc:"One \"timestamp title\" line per chapter"`
}

// ChaptersTextOutput wraps the chapters text response for Huma.
type ChaptersTextOutput struct {
	Body ChaptersTextResponse
}

// CleanupRequest is the request body for removing stale courses.
type CleanupRequest struct {
	MaxAgeDays int `json:"maxAgeDays" minimum:"1" doc:"Remove courses idle for more than this many days"`
}

// CleanupInput wraps the cleanup request for Huma.
type CleanupInput struct {
	Body CleanupRequest
}

// CleanupResponse lists removed courses.
type CleanupResponse struct {
	Removed []string `json:"removed" doc:"Video IDs of removed courses"`
}

// CleanupOutput wraps the cleanup response for Huma.
type CleanupOutput struct {
	Body CleanupResponse
}

// === Handlers ===

func (s *Server) handleListCourses(ctx context.Context, input *ListCoursesInput) (*ListCoursesOutput, error) {
	courses, err := s.services.Course.ListCourses(ctx, service.ListParams{
		Query: input.Query,
		Sort:  input.Sort,
	})
	if err != nil {
		return nil, err
	}

	return &ListCoursesOutput{Body: CourseListResponse{Courses: courses, Total: len(courses)}}, nil
}

func (s *Server) handleAddCourse(ctx context.Context, input *AddCourseInput) (*AddCourseOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	result, err := s.services.Course.AddCourse(ctx, service.AddCourseRequest{
		VideoID:     input.Body.VideoID,
		URL:         input.Body.URL,
		Title:       input.Body.Title,
		Description: input.Body.Description,
		HTML:        input.Body.HTML,
	})
	if err != nil {
		return nil, err
	}

	return &AddCourseOutput{Body: AddCourseResponse{
		Course:            toCourseResponse(result.Course),
		NeedsManualImport: result.NeedsManualImport,
	}}, nil
}

func (s *Server) handleGetCourse(ctx context.Context, input *CourseIDInput) (*CourseOutput, error) {
	if err := s.validator.VideoID(input.VideoID); err != nil {
		return nil, err
	}

	course, err := s.services.Course.GetCourse(ctx, input.VideoID)
	if err != nil {
		return nil, err
	}

	return &CourseOutput{Body: toCourseResponse(course)}, nil
}

func (s *Server) handleRemoveCourse(ctx context.Context, input *CourseIDInput) (*MessageOutput, error) {
	if err := s.validator.VideoID(input.VideoID); err != nil {
		return nil, err
	}

	if err := s.services.Course.RemoveCourse(ctx, input.VideoID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Course removed"}}, nil
}

func (s *Server) handleImportChapters(ctx context.Context, input *ImportChaptersInput) (*CourseOutput, error) {
	if err := s.validator.VideoID(input.VideoID); err != nil {
		return nil, err
	}

	course, err := s.services.Course.ImportChapters(ctx, input.VideoID, input.Body.Text, input.Body.AllowClear)
	if err != nil {
		return nil, err
	}

	return &CourseOutput{Body: toCourseResponse(course)}, nil
}

func (s *Server) handleChaptersText(ctx context.Context, input *CourseIDInput) (*ChaptersTextOutput, error) {
	if err := s.validator.VideoID(input.VideoID); err != nil {
		return nil, err
	}

	text, err := s.services.Course.ChaptersText(ctx, input.VideoID)
	if err != nil {
		return nil, err
	}

	return &ChaptersTextOutput{Body: ChaptersTextResponse{Text: text}}, nil
}

func (s *Server) handleReparse(ctx context.Context, input *CourseIDInput) (*CourseOutput, error) {
	if err := s.validator.VideoID(input.VideoID); err != nil {
		return nil, err
	}

	course, err := s.services.Course.ReparseDescription(ctx, input.VideoID)
	if err != nil {
		return nil, err
	}

	return &CourseOutput{Body: toCourseResponse(course)}, nil
}

func (s *Server) handleCleanup(ctx context.Context, input *CleanupInput) (*CleanupOutput, error) {
	maxAge := time.Duration(input.Body.MaxAgeDays) * 24 * time.Hour

	removed, err := s.services.Course.CleanupStale(ctx, maxAge)
	if err != nil {
		return nil, err
	}
	if removed == nil {
		removed = []string{}
	}

	return &CleanupOutput{Body: CleanupResponse{Removed: removed}}, nil
}
