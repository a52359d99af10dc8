package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/Loxed/youtube-video-tracker/internal/config"
	"github.com/Loxed/youtube-video-tracker/internal/logger"
	"github.com/Loxed/youtube-video-tracker/internal/ratelimit"
	"github.com/Loxed/youtube-video-tracker/internal/service"
)

// ProvideCourseService provides the course service.
func ProvideCourseService(i do.Injector) (*service.CourseService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCourseService(storeHandle.CourseStore, indexHandle.SearchIndex, sseHandle.Manager, log.Logger), nil
}

// PlaybackServiceHandle wraps the playback service so open sessions are
// flushed on shutdown.
type PlaybackServiceHandle struct {
	*service.PlaybackService
	ticks *ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *PlaybackServiceHandle) Shutdown() error {
	defer h.ticks.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.PlaybackService.Shutdown(ctx)
}

// ProvidePlaybackService provides the playback service and registers it
// with the course service so chapter changes reach open sessions.
func ProvidePlaybackService(i do.Injector) (*PlaybackServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	courseService := do.MustInvoke[*service.CourseService](i)
	log := do.MustInvoke[*logger.Logger](i)

	ticks := ratelimit.New(cfg.Tracking.TicksPerSecond, 1)
	svc := service.NewPlaybackService(storeHandle.CourseStore, sseHandle.Manager, ticks, log.Logger)
	courseService.SetCourseObserver(svc)

	return &PlaybackServiceHandle{PlaybackService: svc, ticks: ticks}, nil
}
