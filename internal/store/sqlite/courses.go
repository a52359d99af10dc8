package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Loxed/youtube-video-tracker/internal/domain"
	"github.com/Loxed/youtube-video-tracker/internal/logger"
	"github.com/Loxed/youtube-video-tracker/internal/store"
)

const courseColumns = `video_id, title, description, has_manual, total_watch_time,
	sessions, date_added, last_watched`

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCourse(row scanner) (*domain.CourseRecord, bool, error) {
	var (
		c           domain.CourseRecord
		hasManual   int
		dateAdded   string
		lastWatched sql.NullString
	)
	err := row.Scan(&c.VideoID, &c.Title, &c.Description, &hasManual, &c.TotalWatchTime,
		&c.Sessions, &dateAdded, &lastWatched)
	if err != nil {
		return nil, false, err
	}

	if c.DateAdded, err = parseTime(dateAdded); err != nil {
		return nil, false, fmt.Errorf("parse date_added: %w", err)
	}
	if c.LastWatched, err = parseNullableTime(lastWatched); err != nil {
		return nil, false, fmt.Errorf("parse last_watched: %w", err)
	}
	return &c, hasManual == 1, nil
}

// loadCourseChildren fills in chapters, manual chapters and progress.
func loadCourseChildren(ctx context.Context, q querier, c *domain.CourseRecord, hasManual bool) error {
	var err error
	if c.Chapters, err = loadChapters(ctx, q, c.VideoID, false); err != nil {
		return fmt.Errorf("load chapters: %w", err)
	}
	if hasManual {
		if c.ManualChapters, err = loadChapters(ctx, q, c.VideoID, true); err != nil {
			return fmt.Errorf("load manual chapters: %w", err)
		}
	}
	if c.Progress, err = loadProgress(ctx, q, c.VideoID); err != nil {
		return fmt.Errorf("load progress: %w", err)
	}
	return nil
}

func loadChapters(ctx context.Context, q querier, videoID string, manual bool) ([]domain.Chapter, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT title, timestamp, seconds, duration
		FROM course_chapters
		WHERE video_id = ? AND manual = ?
		ORDER BY idx ASC`, videoID, boolToInt(manual))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chapters := []domain.Chapter{}
	for rows.Next() {
		var ch domain.Chapter
		var duration sql.NullInt64
		if err := rows.Scan(&ch.Title, &ch.Timestamp, &ch.Seconds, &duration); err != nil {
			return nil, err
		}
		if duration.Valid {
			ch.Duration = domain.DurationOf(int(duration.Int64))
		}
		chapters = append(chapters, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return chapters, nil
}

func loadProgress(ctx context.Context, q querier, videoID string) (map[int]domain.ChapterProgress, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT idx, completed, watch_time
		FROM chapter_progress
		WHERE video_id = ?`, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	progress := make(map[int]domain.ChapterProgress)
	for rows.Next() {
		var idx, completed int
		var watch float64
		if err := rows.Scan(&idx, &completed, &watch); err != nil {
			return nil, err
		}
		progress[idx] = domain.ChapterProgress{Completed: completed == 1, WatchTime: watch}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return progress, nil
}

// insertChapters inserts one chapter list for a course within a transaction.
func insertChapters(ctx context.Context, tx *sql.Tx, videoID string, manual bool, chapters []domain.Chapter) error {
	for i, ch := range chapters {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO course_chapters (
				video_id, manual, idx, title, timestamp, seconds, duration
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			videoID, boolToInt(manual), i, ch.Title, ch.Timestamp, ch.Seconds, nullInt(ch.Duration),
		)
		if err != nil {
			return fmt.Errorf("insert chapter %d: %w", i, err)
		}
	}
	return nil
}

func insertProgress(ctx context.Context, tx *sql.Tx, videoID string, progress map[int]domain.ChapterProgress) error {
	for idx, p := range progress {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chapter_progress (video_id, idx, completed, watch_time)
			VALUES (?, ?, ?, ?)`,
			videoID, idx, boolToInt(p.Completed), p.WatchTime,
		)
		if err != nil {
			return fmt.Errorf("insert progress %d: %w", idx, err)
		}
	}
	return nil
}

// replaceChildren rewrites every child row of a course.
func replaceChildren(ctx context.Context, tx *sql.Tx, c *domain.CourseRecord) error {
	if err := deleteChildren(ctx, tx, c.VideoID); err != nil {
		return err
	}
	if err := insertChapters(ctx, tx, c.VideoID, false, c.Chapters); err != nil {
		return err
	}
	if err := insertChapters(ctx, tx, c.VideoID, true, c.ManualChapters); err != nil {
		return err
	}
	return insertProgress(ctx, tx, c.VideoID, c.Progress)
}

func deleteChildren(ctx context.Context, tx *sql.Tx, videoID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM course_chapters WHERE video_id = ?`, videoID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM chapter_progress WHERE video_id = ?`, videoID)
	return err
}

// CreateCourse inserts a course with its chapters and progress in a transaction.
// Returns store.ErrAlreadyExists if the video is already tracked.
func (s *Store) CreateCourse(ctx context.Context, c *domain.CourseRecord) error {
	if c == nil || c.VideoID == "" {
		return store.ErrInvalidInput.WithMessage("course requires a video ID")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO courses (
			video_id, title, description, has_manual, total_watch_time,
			sessions, date_added, last_watched, last_activity, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.VideoID,
		c.Title,
		c.Description,
		boolToInt(c.ManualChapters != nil),
		c.TotalWatchTime,
		c.Sessions,
		formatTime(c.DateAdded),
		nullTimeString(c.LastWatched),
		formatTime(c.LastActivity()),
		formatTime(time.Now()),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}

	if err := replaceChildren(ctx, tx, c); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.indexCourse(ctx, c)
	return nil
}

// GetCourse retrieves a course by video ID.
// Returns store.ErrNotFound if the video is not tracked.
func (s *Store) GetCourse(ctx context.Context, videoID string) (*domain.CourseRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE video_id = ?`, videoID)

	c, hasManual, err := scanCourse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := loadCourseChildren(ctx, s.db, c, hasManual); err != nil {
		return nil, err
	}
	return c, nil
}

// SaveCourse replaces the stored record for an already tracked video.
// Returns store.ErrNotFound if the video is not tracked.
func (s *Store) SaveCourse(ctx context.Context, c *domain.CourseRecord) error {
	if c == nil || c.VideoID == "" {
		return store.ErrInvalidInput.WithMessage("course requires a video ID")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE courses SET
			title = ?, description = ?, has_manual = ?, total_watch_time = ?,
			sessions = ?, date_added = ?, last_watched = ?, last_activity = ?, updated_at = ?
		WHERE video_id = ?`,
		c.Title,
		c.Description,
		boolToInt(c.ManualChapters != nil),
		c.TotalWatchTime,
		c.Sessions,
		formatTime(c.DateAdded),
		nullTimeString(c.LastWatched),
		formatTime(c.LastActivity()),
		formatTime(time.Now()),
		c.VideoID,
	)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	if err := replaceChildren(ctx, tx, c); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.indexCourse(ctx, c)
	return nil
}

// DeleteCourse removes a course and its child rows.
// Returns store.ErrNotFound if the video is not tracked.
func (s *Store) DeleteCourse(ctx context.Context, videoID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteChildren(ctx, tx, videoID); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM courses WHERE video_id = ?`, videoID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.unindexCourse(ctx, videoID)
	return nil
}

// ListCourses returns every tracked course ordered by video ID.
func (s *Store) ListCourses(ctx context.Context) ([]*domain.CourseRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+courseColumns+` FROM courses ORDER BY video_id ASC`)
	if err != nil {
		return nil, err
	}

	type pending struct {
		course    *domain.CourseRecord
		hasManual bool
	}
	var list []pending
	for rows.Next() {
		c, hasManual, err := scanCourse(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, pending{c, hasManual})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	courses := make([]*domain.CourseRecord, 0, len(list))
	for _, p := range list {
		if err := loadCourseChildren(ctx, s.db, p.course, p.hasManual); err != nil {
			return nil, err
		}
		courses = append(courses, p.course)
	}
	return courses, nil
}

// DeleteCoursesInactiveSince removes courses whose last activity is before
// cutoff and returns their video IDs.
func (s *Store) DeleteCoursesInactiveSince(ctx context.Context, cutoff time.Time) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		DELETE FROM courses WHERE last_activity < ?
		RETURNING video_id`, formatTime(cutoff))
	if err != nil {
		return nil, err
	}

	var removed []string
	for rows.Next() {
		var videoID string
		if err := rows.Scan(&videoID); err != nil {
			rows.Close()
			return nil, err
		}
		removed = append(removed, videoID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, videoID := range removed {
		if err := deleteChildren(ctx, tx, videoID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	for _, videoID := range removed {
		s.unindexCourse(ctx, videoID)
	}
	if len(removed) > 0 {
		s.logger.Info("inactive courses removed", "count", len(removed), "cutoff", cutoff)
	}
	return removed, nil
}

func (s *Store) indexCourse(ctx context.Context, c *domain.CourseRecord) {
	if err := s.searchIndexer.IndexCourse(ctx, c); err != nil {
		logger.WithVideo(s.logger, c.VideoID).Warn("failed to index course", logger.Err(err))
	}
}

func (s *Store) unindexCourse(ctx context.Context, videoID string) {
	if err := s.searchIndexer.DeleteCourse(ctx, videoID); err != nil {
		logger.WithVideo(s.logger, videoID).Warn("failed to remove course from index", logger.Err(err))
	}
}
