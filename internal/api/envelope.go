package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Loxed/youtube-video-tracker/internal/http/response"
)

// EnvelopeVersion is the response envelope format version sent as "v".
const EnvelopeVersion = response.Version

// EnvelopeTransformer wraps every huma response body in the shared envelope.
// Errors become {v, success: false, error}; everything else {v, success, data}.
func EnvelopeTransformer(_ huma.Context, _ string, v any) (any, error) {
	switch body := v.(type) {
	case response.Envelope:
		return body, nil
	case *APIError:
		return response.Failure(response.ErrorBody{
			Code:    body.Code,
			Message: body.Message,
			Details: body.Details,
		}), nil
	case error:
		var apiErr *APIError
		if errors.As(body, &apiErr) {
			return EnvelopeTransformer(nil, "", apiErr)
		}
		return response.Failure(response.ErrorBody{
			Code:    statusToCode(http.StatusInternalServerError),
			Message: body.Error(),
		}), nil
	}
	return response.OK(v), nil
}
