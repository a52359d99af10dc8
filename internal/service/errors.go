package service

import (
	"errors"

	domainerrors "github.com/Loxed/youtube-video-tracker/internal/errors"
	"github.com/Loxed/youtube-video-tracker/internal/store"
)

// storeError translates a store failure into a domain error. Anything that
// is not a known sentinel surfaces as STORAGE_UNAVAILABLE.
func storeError(err error, videoID, action string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFoundf("course %s not found", videoID)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.AlreadyExistsf("course %s is already tracked", videoID)
	case errors.Is(err, store.ErrInvalidInput):
		return domainerrors.Validation(err.Error())
	default:
		return domainerrors.StorageUnavailable(err, "failed to "+action)
	}
}
