package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Loxed/youtube-video-tracker/internal/domain"
	"github.com/Loxed/youtube-video-tracker/internal/logger"
)

// CreateCourse starts tracking a video.
// Returns ErrAlreadyExists if the video is already tracked.
func (s *Store) CreateCourse(ctx context.Context, course *domain.CourseRecord) error {
	if course == nil || course.VideoID == "" {
		return ErrInvalidInput.WithMessage("course requires a video ID")
	}

	if err := s.courses.Create(ctx, course.VideoID, course); err != nil {
		return err
	}

	logger.WithVideo(s.logger, course.VideoID).Debug("course created", "chapters", len(course.Chapters))
	s.indexCourse(ctx, course)
	return nil
}

// GetCourse retrieves a course by video ID.
// Returns ErrNotFound if the video is not tracked.
func (s *Store) GetCourse(ctx context.Context, videoID string) (*domain.CourseRecord, error) {
	course, err := s.courses.Get(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if course.Progress == nil {
		course.Progress = make(map[int]domain.ChapterProgress)
	}
	return course, nil
}

// SaveCourse replaces the stored record for an already tracked video.
// Returns ErrNotFound if the video is not tracked.
func (s *Store) SaveCourse(ctx context.Context, course *domain.CourseRecord) error {
	if course == nil || course.VideoID == "" {
		return ErrInvalidInput.WithMessage("course requires a video ID")
	}

	if _, err := s.courses.Get(ctx, course.VideoID); err != nil {
		return err
	}
	if err := s.courses.Put(ctx, course.VideoID, course); err != nil {
		return fmt.Errorf("save course: %w", err)
	}

	s.indexCourse(ctx, course)
	return nil
}

// DeleteCourse stops tracking a video.
// Returns ErrNotFound if the video is not tracked.
func (s *Store) DeleteCourse(ctx context.Context, videoID string) error {
	if err := s.courses.Delete(ctx, videoID); err != nil {
		return err
	}

	logger.WithVideo(s.logger, videoID).Debug("course deleted")
	s.unindexCourse(ctx, videoID)
	return nil
}

// ListCourses returns every tracked course in video ID order.
func (s *Store) ListCourses(ctx context.Context) ([]*domain.CourseRecord, error) {
	courses := []*domain.CourseRecord{}
	for course, err := range s.courses.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list courses: %w", err)
		}
		courses = append(courses, course)
	}
	return courses, nil
}

// DeleteCoursesInactiveSince removes courses whose last activity is before cutoff.
func (s *Store) DeleteCoursesInactiveSince(ctx context.Context, cutoff time.Time) ([]string, error) {
	removed, err := s.courses.DeleteWhere(ctx, func(c *domain.CourseRecord) bool {
		return c.LastActivity().Before(cutoff)
	})
	if err != nil {
		return nil, fmt.Errorf("delete inactive courses: %w", err)
	}

	for _, videoID := range removed {
		s.unindexCourse(ctx, videoID)
	}
	return removed, nil
}
