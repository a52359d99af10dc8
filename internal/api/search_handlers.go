package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/Loxed/youtube-video-tracker/internal/errors"
	"github.com/Loxed/youtube-video-tracker/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchCourses",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search courses",
		Description: "Full-text search over course titles, chapter titles and descriptions",
		Tags:        []string{"Search"},
	}, s.handleSearch)
}

// SearchInput contains search query parameters.
type SearchInput struct {
	Query     string `query:"q" doc:"Search query"`
	Limit     int    `query:"limit" minimum:"0" maximum:"200" doc:"Maximum hits (default 50)"`
	Offset    int    `query:"offset" minimum:"0" doc:"Hits to skip"`
	Highlight bool   `query:"highlight" doc:"Include match highlights"`
}

// SearchOutput wraps search results for Huma.
type SearchOutput struct {
	Body *search.SearchResult
}

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	if s.services.Search == nil {
		return nil, domainerrors.Internal("search is not available")
	}

	result, err := s.services.Search.Search(ctx, search.SearchParams{
		Query:     input.Query,
		Limit:     input.Limit,
		Offset:    input.Offset,
		Highlight: input.Highlight,
	})
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "search failed")
	}

	return &SearchOutput{Body: result}, nil
}
