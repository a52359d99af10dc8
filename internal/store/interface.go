// Package store defines the persistence interface for tracked courses.
//
// Course records are read and written whole: callers read a record, change
// it in memory, and save it back. No field-level updates are offered.
package store

import (
	"context"
	"time"

	"github.com/Loxed/youtube-video-tracker/internal/domain"
)

// CourseStore persists course records keyed by video ID.
type CourseStore interface {
	// Lifecycle
	Close() error
	SetSearchIndexer(indexer SearchIndexer)

	// Courses
	CreateCourse(ctx context.Context, course *domain.CourseRecord) error
	GetCourse(ctx context.Context, videoID string) (*domain.CourseRecord, error)
	SaveCourse(ctx context.Context, course *domain.CourseRecord) error
	DeleteCourse(ctx context.Context, videoID string) error
	ListCourses(ctx context.Context) ([]*domain.CourseRecord, error)

	// DeleteCoursesInactiveSince removes courses whose last activity is
	// before cutoff and returns their video IDs.
	DeleteCoursesInactiveSince(ctx context.Context, cutoff time.Time) ([]string, error)
}

// EventEmitter is the interface for emitting SSE events.
// Services use this to broadcast changes without depending on SSE implementation details.
type EventEmitter interface {
	Emit(event any)
}

// NoopEmitter is a no-op implementation of EventEmitter for testing.
type NoopEmitter struct{}

// Emit implements EventEmitter.Emit as a no-op.
func (NoopEmitter) Emit(_ any) {}

// NewNoopEmitter creates a new no-op emitter for testing.
func NewNoopEmitter() EventEmitter {
	return NoopEmitter{}
}

// SearchIndexer is the interface for updating the search index.
// Stores call it after successful writes; indexing failures are logged, not returned.
type SearchIndexer interface {
	IndexCourse(ctx context.Context, course *domain.CourseRecord) error
	DeleteCourse(ctx context.Context, videoID string) error
}

// NoopSearchIndexer is a no-op implementation for testing.
type NoopSearchIndexer struct{}

// IndexCourse is a no-op.
func (NoopSearchIndexer) IndexCourse(context.Context, *domain.CourseRecord) error { return nil }

// DeleteCourse is a no-op.
func (NoopSearchIndexer) DeleteCourse(context.Context, string) error { return nil }

// NewNoopSearchIndexer creates a new no-op search indexer for testing.
func NewNoopSearchIndexer() SearchIndexer {
	return NoopSearchIndexer{}
}
