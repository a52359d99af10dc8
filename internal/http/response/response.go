// Package response provides the JSON envelope shared by every API response.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	domainerrors "github.com/Loxed/youtube-video-tracker/internal/errors"
	"github.com/Loxed/youtube-video-tracker/internal/store"
)

// Version is the envelope format version, sent as "v".
const Version = 1

// Envelope provides a consistent JSON response structure.
type Envelope struct {
	V       int        `json:"v"`
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody is the error half of an envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// OK wraps data in a success envelope.
func OK(data any) Envelope {
	return Envelope{V: Version, Success: true, Data: data}
}

// Failure wraps an error body in a failure envelope.
func Failure(body ErrorBody) Envelope {
	return Envelope{V: Version, Success: false, Error: &body}
}

// JSON writes a success envelope with the given status code.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	write(w, status, OK(data), logger)
}

// Error writes a domain error as a failure envelope.
func Error(w http.ResponseWriter, err *domainerrors.Error, logger *slog.Logger) {
	write(w, err.HTTPStatus(), Failure(ErrorBody{
		Code:    string(err.Code),
		Message: err.Message,
		Details: err.Details,
	}), logger)
}

// TooManyRequests writes a 429 response.
func TooManyRequests(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, domainerrors.TooManyRequests(message), logger)
}

// HandleError writes an appropriate HTTP response based on the error type.
// Domain and store errors keep their status, unknown errors become 500.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		Error(w, domainErr, logger)
		return
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		switch {
		case errors.Is(err, store.ErrNotFound):
			Error(w, domainerrors.NotFound(storeErr.Message), logger)
		case errors.Is(err, store.ErrAlreadyExists):
			Error(w, domainerrors.AlreadyExists(storeErr.Message), logger)
		case errors.Is(err, store.ErrInvalidInput):
			Error(w, domainerrors.Validation(storeErr.Message), logger)
		default:
			Error(w, domainerrors.StorageUnavailable(err, storeErr.Message), logger)
		}
		return
	}

	if logger != nil {
		logger.Error("Unhandled error", "error", err)
	}
	Error(w, domainerrors.Internal("internal server error"), logger)
}

func write(w http.ResponseWriter, status int, envelope Envelope, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		if logger != nil {
			logger.Error("Failed to encode JSON response", "error", err)
		}
	}
}
