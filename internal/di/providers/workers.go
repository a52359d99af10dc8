package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/Loxed/youtube-video-tracker/internal/config"
	"github.com/Loxed/youtube-video-tracker/internal/logger"
	"github.com/Loxed/youtube-video-tracker/internal/service"
	"github.com/Loxed/youtube-video-tracker/internal/watcher"
)

// InboxHandle wraps the chapter import inbox with shutdown capability.
// Inbox is nil when no inbox path is configured.
type InboxHandle struct {
	*watcher.Inbox
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (h *InboxHandle) Shutdown() error {
	if h.Inbox == nil {
		return nil
	}
	h.cancel()
	<-h.done
	return nil
}

// ProvideInbox provides the chapter import inbox watcher.
func ProvideInbox(i do.Injector) (*InboxHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	courseService := do.MustInvoke[*service.CourseService](i)

	if cfg.Tracking.InboxPath == "" {
		log.Info("Chapter import inbox disabled by configuration")
		return &InboxHandle{}, nil
	}

	inbox, err := watcher.NewInbox(cfg.Tracking.InboxPath, courseService, log.Logger, cfg.Tracking.InboxSettleDelay)
	if err != nil {
		return nil, err
	}

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := inbox.Run(ctx); err != nil {
			log.Error("Chapter import inbox error", "error", err)
		}
	}()

	log.Info("Chapter import inbox started", "path", cfg.Tracking.InboxPath)

	return &InboxHandle{
		Inbox:  inbox,
		cancel: cancel,
		done:   done,
	}, nil
}

// CleanupJobHandle wraps the stale course cleanup schedule.
// Job is nil when no schedule is configured.
type CleanupJobHandle struct {
	*service.CleanupJob
}

// Shutdown implements do.Shutdownable.
func (h *CleanupJobHandle) Shutdown() error {
	if h.CleanupJob == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Stop(ctx)
}

// ProvideCleanupJob provides the periodic stale course cleanup.
func ProvideCleanupJob(i do.Injector) (*CleanupJobHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	courseService := do.MustInvoke[*service.CourseService](i)

	if cfg.Tracking.CleanupSchedule == "" {
		log.Info("Stale course cleanup disabled by configuration")
		return &CleanupJobHandle{}, nil
	}

	job, err := service.NewCleanupJob(courseService, cfg.Tracking.CleanupSchedule, cfg.Tracking.StaleAfter, log.Logger)
	if err != nil {
		return nil, err
	}
	job.Start()

	log.Info("Stale course cleanup scheduled",
		"schedule", cfg.Tracking.CleanupSchedule,
		"stale_after", cfg.Tracking.StaleAfter,
	)

	return &CleanupJobHandle{CleanupJob: job}, nil
}
