package providers

import (
	"context"
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/Loxed/youtube-video-tracker/internal/config"
	"github.com/Loxed/youtube-video-tracker/internal/logger"
	"github.com/Loxed/youtube-video-tracker/internal/sse"
	"github.com/Loxed/youtube-video-tracker/internal/store"
	"github.com/Loxed/youtube-video-tracker/internal/store/sqlite"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the course store with shutdown capability.
type StoreHandle struct {
	store.CourseStore
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the configured course store backend.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Data.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	path := cfg.StorePath()

	var (
		courses store.CourseStore
		err     error
	)
	switch cfg.Store.Backend {
	case config.BackendBadger:
		courses, err = store.New(path, log.Logger)
	default:
		courses, err = sqlite.Open(path, log.Logger)
	}
	if err != nil {
		return nil, err
	}

	log.Info("Course store initialized", "backend", cfg.Store.Backend, "path", path)

	return &StoreHandle{CourseStore: courses}, nil
}
