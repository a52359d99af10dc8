package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/Loxed/youtube-video-tracker/internal/domain"
	"github.com/Loxed/youtube-video-tracker/internal/logger"
)

const coursePrefix = "course:"

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// Search indexer for keeping search in sync with store changes.
	// Set via SetSearchIndexer after store creation to avoid circular dependencies.
	searchIndexer SearchIndexer

	courses *Entity[domain.CourseRecord]
}

var _ CourseStore = (*Store)(nil)

// New creates a new Store instance with the given database path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	return open(opts, logger)
}

// NewInMemory opens a Badger instance that never touches disk. Used by tests
// and the chaptest tool.
func NewInMemory(logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts, logger)
}

func open(opts badger.Options, logger *slog.Logger) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store := &Store{
		db:            db,
		logger:        logger,
		searchIndexer: NewNoopSearchIndexer(),
	}
	store.courses = NewEntity[domain.CourseRecord](store, coursePrefix)

	logger.Info("Badger database opened successfully", "path", opts.Dir, "in_memory", opts.InMemory)

	return store, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	s.logger.Info("Closing database connection")
	return s.db.Close()
}

// SetSearchIndexer sets the search indexer for keeping search in sync.
// This is set after store creation to avoid circular dependencies
// (store needs to exist before search service can be created).
func (s *Store) SetSearchIndexer(indexer SearchIndexer) {
	if indexer == nil {
		indexer = NewNoopSearchIndexer()
	}
	s.searchIndexer = indexer
}

// indexCourse updates the search index, logging rather than failing the write.
func (s *Store) indexCourse(ctx context.Context, course *domain.CourseRecord) {
	if err := s.searchIndexer.IndexCourse(ctx, course); err != nil {
		logger.WithVideo(s.logger, course.VideoID).Warn("failed to index course", logger.Err(err))
	}
}

func (s *Store) unindexCourse(ctx context.Context, videoID string) {
	if err := s.searchIndexer.DeleteCourse(ctx, videoID); err != nil {
		logger.WithVideo(s.logger, videoID).Warn("failed to remove course from index", logger.Err(err))
	}
}
