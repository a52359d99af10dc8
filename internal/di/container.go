// Package di provides dependency injection configuration for the tracker server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/Loxed/youtube-video-tracker/internal/config"
	"github.com/Loxed/youtube-video-tracker/internal/di/providers"
	"github.com/Loxed/youtube-video-tracker/internal/logger"
	"github.com/Loxed/youtube-video-tracker/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Business services
	do.Provide(injector, providers.ProvideCourseService)
	do.Provide(injector, providers.ProvidePlaybackService)

	// Workers
	do.Provide(injector, providers.ProvideInbox)
	do.Provide(injector, providers.ProvideCleanupJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)

	// Business services
	_ = do.MustInvoke[*service.CourseService](injector)
	_ = do.MustInvoke[*providers.PlaybackServiceHandle](injector)

	// Workers
	_ = do.MustInvoke[*providers.InboxHandle](injector)
	_ = do.MustInvoke[*providers.CleanupJobHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Trigger search reindex if needed
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
