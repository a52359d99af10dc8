package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Loxed/youtube-video-tracker/internal/service"
	"github.com/Loxed/youtube-video-tracker/internal/tracker"
)

func (s *Server) registerPlaybackRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "openSession",
		Method:        http.MethodPost,
		Path:          "/api/v1/sessions",
		Summary:       "Open playback session",
		Description:   "Starts tracking playback of a course and counts a viewing session",
		Tags:          []string{"Playback"},
		DefaultStatus: http.StatusCreated,
	}, s.handleOpenSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "closeSession",
		Method:      http.MethodDelete,
		Path:        "/api/v1/sessions/{sessionId}",
		Summary:     "Close playback session",
		Description: "Writes unsaved progress and ends the session",
		Tags:        []string{"Playback"},
	}, s.handleCloseSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "navigateSession",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{sessionId}/navigate",
		Summary:     "Navigate to video",
		Description: "Moves the session to another video; untracked videos leave it idle",
		Tags:        []string{"Playback"},
	}, s.handleNavigate)

	huma.Register(s.api, huma.Operation{
		OperationID: "reportMetadata",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{sessionId}/metadata",
		Summary:     "Report video length",
		Description: "Resolves the last chapter's duration from the video length",
		Tags:        []string{"Playback"},
	}, s.handleMetadata)

	huma.Register(s.api, huma.Operation{
		OperationID: "reportPosition",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{sessionId}/position",
		Summary:     "Report playback position",
		Description: "Updates the current chapter and its progress from the player position",
		Tags:        []string{"Playback"},
	}, s.handlePosition)

	huma.Register(s.api, huma.Operation{
		OperationID: "reportTick",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{sessionId}/tick",
		Summary:     "Report playback tick",
		Description: "Adds one second of watch time while playing",
		Tags:        []string{"Playback"},
	}, s.handleTick)

	huma.Register(s.api, huma.Operation{
		OperationID: "completeChapter",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{sessionId}/chapters/{index}/complete",
		Summary:     "Complete chapter",
		Description: "Marks a chapter complete; completing the current one moves to the next",
		Tags:        []string{"Playback"},
	}, s.handleCompleteChapter)

	huma.Register(s.api, huma.Operation{
		OperationID: "resetChapter",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{sessionId}/chapters/{index}/reset",
		Summary:     "Reset chapter",
		Description: "Clears a chapter's progress and seeks to its start",
		Tags:        []string{"Playback"},
	}, s.handleResetChapter)

	huma.Register(s.api, huma.Operation{
		OperationID: "jumpToChapter",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{sessionId}/chapters/{index}/jump",
		Summary:     "Jump to chapter",
		Description: "Makes a chapter current and seeks to where the viewer left off in it",
		Tags:        []string{"Playback"},
	}, s.handleJumpToChapter)

	huma.Register(s.api, huma.Operation{
		OperationID: "resumePosition",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{sessionId}/chapters/{index}/resume",
		Summary:     "Get resume position",
		Description: "Returns the position playback should start from for a chapter",
		Tags:        []string{"Playback"},
	}, s.handleResume)
}

// === DTOs ===

// SessionResponse is the session state after a playback call.
type SessionResponse struct {
	SessionID      string          `json:"sessionId" doc:"Playback session ID"`
	VideoID        string          `json:"videoId,omitempty" doc:"Video the session is on, empty when idle"`
	Tracking       bool            `json:"tracking" doc:"Whether the session is on a tracked video"`
	CurrentChapter int             `json:"currentChapter" doc:"Index of the current chapter"`
	Events         []tracker.Event `json:"events" doc:"Changes caused by this call, in order"`
	Dropped        bool            `json:"dropped,omitempty" doc:"Tick arrived faster than the tick rate and was ignored"`
	Course         *CourseResponse `json:"course,omitempty" doc:"Course state, included when a session starts tracking"`
}

// SessionOutput wraps a session response for Huma.
type SessionOutput struct {
	Body SessionResponse
}

// OpenSessionRequest is the request body for opening a session.
type OpenSessionRequest struct {
	VideoID string `json:"videoId" validate:"required,videoid" doc:"YouTube video ID"`
}

// OpenSessionInput wraps the open request for Huma.
type OpenSessionInput struct {
	Body OpenSessionRequest
}

// SessionIDInput contains the session ID path parameter.
type SessionIDInput struct {
	SessionID string `path:"sessionId" doc:"Playback session ID"`
}

// NavigateRequest is the request body for navigating a session.
type NavigateRequest struct {
	VideoID string `json:"videoId" validate:"required,videoid" doc:"YouTube video ID now playing"`
}

// NavigateInput wraps the navigate request for Huma.
type NavigateInput struct {
	SessionID string `path:"sessionId" doc:"Playback session ID"`
	Body      NavigateRequest
}

// MetadataRequest is the request body for reporting video length.
type MetadataRequest struct {
	Duration float64 `json:"duration" doc:"Video length in seconds"`
}

// MetadataInput wraps the metadata request for Huma.
type MetadataInput struct {
	SessionID string `path:"sessionId" doc:"Playback session ID"`
	Body      MetadataRequest
}

// PositionRequest is the request body for reporting a position.
type PositionRequest struct {
	Position float64 `json:"position" minimum:"0" doc:"Player position in seconds"`
}

// PositionInput wraps the position request for Huma.
type PositionInput struct {
	SessionID string `path:"sessionId" doc:"Playback session ID"`
	Body      PositionRequest
}

// TickRequest is the request body for a playback tick.
type TickRequest struct {
	Playing bool `json:"playing" doc:"Whether the player is playing"`
}

// TickInput wraps the tick request for Huma.
type TickInput struct {
	SessionID string `path:"sessionId" doc:"Playback session ID"`
	Body      TickRequest
}

// ChapterActionInput addresses one chapter of a session.
type ChapterActionInput struct {
	SessionID string `path:"sessionId" doc:"Playback session ID"`
	Index     int    `path:"index" minimum:"0" doc:"Chapter index"`
}

// ResumeResponse contains a resume position.
type ResumeResponse struct {
	Position float64 `json:"position" doc:"Seconds from the start of the video"`
}

// ResumeOutput wraps the resume response for Huma.
type ResumeOutput struct {
	Body ResumeResponse
}

// === Handlers ===

func (s *Server) handleOpenSession(ctx context.Context, input *OpenSessionInput) (*SessionOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}
	return sessionOutput(s.services.Playback.Open(ctx, input.Body.VideoID))
}

func (s *Server) handleCloseSession(ctx context.Context, input *SessionIDInput) (*MessageOutput, error) {
	if err := s.services.Playback.Close(ctx, input.SessionID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Session closed"}}, nil
}

func (s *Server) handleNavigate(ctx context.Context, input *NavigateInput) (*SessionOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}
	return sessionOutput(s.services.Playback.Navigate(ctx, input.SessionID, input.Body.VideoID))
}

func (s *Server) handleMetadata(ctx context.Context, input *MetadataInput) (*SessionOutput, error) {
	return sessionOutput(s.services.Playback.Metadata(ctx, input.SessionID, input.Body.Duration))
}

func (s *Server) handlePosition(ctx context.Context, input *PositionInput) (*SessionOutput, error) {
	return sessionOutput(s.services.Playback.Position(ctx, input.SessionID, input.Body.Position))
}

func (s *Server) handleTick(ctx context.Context, input *TickInput) (*SessionOutput, error) {
	return sessionOutput(s.services.Playback.Tick(ctx, input.SessionID, input.Body.Playing))
}

func (s *Server) handleCompleteChapter(ctx context.Context, input *ChapterActionInput) (*SessionOutput, error) {
	return sessionOutput(s.services.Playback.CompleteChapter(ctx, input.SessionID, input.Index))
}

func (s *Server) handleResetChapter(ctx context.Context, input *ChapterActionInput) (*SessionOutput, error) {
	return sessionOutput(s.services.Playback.ResetChapter(ctx, input.SessionID, input.Index))
}

func (s *Server) handleJumpToChapter(ctx context.Context, input *ChapterActionInput) (*SessionOutput, error) {
	return sessionOutput(s.services.Playback.JumpToChapter(ctx, input.SessionID, input.Index))
}

func (s *Server) handleResume(_ context.Context, input *ChapterActionInput) (*ResumeOutput, error) {
	position, err := s.services.Playback.Resume(input.SessionID, input.Index)
	if err != nil {
		return nil, err
	}
	return &ResumeOutput{Body: ResumeResponse{Position: position}}, nil
}

func sessionOutput(st *service.SessionState, err error) (*SessionOutput, error) {
	if err != nil {
		return nil, err
	}

	resp := SessionResponse{
		SessionID:      st.SessionID,
		VideoID:        st.VideoID,
		Tracking:       st.Tracking,
		CurrentChapter: st.CurrentChapter,
		Events:         st.Events,
		Dropped:        st.Dropped,
	}
	if st.Course != nil {
		course := toCourseResponse(st.Course)
		resp.Course = &course
	}
	return &SessionOutput{Body: resp}, nil
}
