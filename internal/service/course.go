// Package service implements course tracking on top of the chapter parser,
// the playback tracker and the course store.
package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Loxed/youtube-video-tracker/internal/chapters"
	"github.com/Loxed/youtube-video-tracker/internal/domain"
	domainerrors "github.com/Loxed/youtube-video-tracker/internal/errors"
	"github.com/Loxed/youtube-video-tracker/internal/logger"
	"github.com/Loxed/youtube-video-tracker/internal/page"
	"github.com/Loxed/youtube-video-tracker/internal/sse"
	"github.com/Loxed/youtube-video-tracker/internal/store"
)

// Sort orders accepted by ListCourses.
const (
	SortRecent   = "recent"
	SortProgress = "progress"
	SortTitle    = "title"
	SortAdded    = "added"
)

// CourseSearcher finds courses by title or chapter title.
type CourseSearcher interface {
	MatchingIDs(ctx context.Context, q string) (map[string]bool, error)
}

// CourseObserver is the playback side. Chapter replacements run through
// ReplaceCourse so open sessions neither overwrite nor miss them, and removed
// courses stop being tracked.
type CourseObserver interface {
	ReplaceCourse(ctx context.Context, videoID string, write func() (*domain.CourseRecord, error)) (*domain.CourseRecord, error)
	CourseRemoved(videoID string)
}

// CourseService manages the set of tracked courses.
type CourseService struct {
	store     store.CourseStore
	searcher  CourseSearcher
	events    store.EventEmitter
	extractor *chapters.Extractor
	observer  CourseObserver
	logger    *slog.Logger
	now       func() time.Time
}

// NewCourseService creates a new course service.
func NewCourseService(courses store.CourseStore, searcher CourseSearcher, events store.EventEmitter, logger *slog.Logger) *CourseService {
	return &CourseService{
		store:     courses,
		searcher:  searcher,
		events:    events,
		extractor: chapters.NewExtractor(logger),
		logger:    logger,
		now:       time.Now,
	}
}

// SetCourseObserver registers the playback side after construction.
func (s *CourseService) SetCourseObserver(observer CourseObserver) {
	s.observer = observer
}

// AddCourseRequest describes a video to start tracking. Either VideoID or
// URL identifies it; HTML, when given, is a watch page to read the title
// and description from.
type AddCourseRequest struct {
	VideoID     string `json:"videoId,omitempty"`
	URL         string `json:"url,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	HTML        string `json:"html,omitempty"`
}

// AddCourseResult is the stored course plus whether its description had no
// usable timestamps.
type AddCourseResult struct {
	Course            *domain.CourseRecord
	NeedsManualImport bool
}

// AddCourse starts tracking a video. A video with no timestamps in its
// description is still added; the result asks for a manual import.
func (s *CourseService) AddCourse(ctx context.Context, req AddCourseRequest) (*AddCourseResult, error) {
	title := strings.TrimSpace(req.Title)
	description := req.Description
	videoID := strings.TrimSpace(req.VideoID)

	if req.HTML != "" {
		wp, err := page.ParseWatchPage([]byte(req.HTML))
		if err != nil {
			return nil, domainerrors.Validationf("unreadable watch page: %v", err)
		}
		if title == "" {
			title = wp.Title
		}
		if description == "" {
			description = wp.Description
		}
		if videoID == "" {
			videoID = wp.VideoID
		}
	}
	if videoID == "" && req.URL != "" {
		videoID, _ = page.VideoIDFromURL(req.URL)
	}
	if videoID == "" {
		return nil, domainerrors.ValidationWithDetails("invalid videoId",
			map[string]string{"videoId": "is required"})
	}
	if title == "" {
		title = page.UnknownTitle
	}
	description = page.DescriptionText(description)

	parsed := s.extractor.Extract(description)
	course := domain.NewCourseRecord(videoID, title, description, parsed, s.now())

	if err := s.store.CreateCourse(ctx, course); err != nil {
		return nil, storeError(err, videoID, "add course")
	}

	logger.WithVideo(s.logger, videoID).Info("course added",
		"title", title,
		"chapters", len(parsed),
	)
	s.events.Emit(sse.NewCourseAddedEvent(courseEventData(course)))

	return &AddCourseResult{Course: course, NeedsManualImport: len(parsed) == 0}, nil
}

// GetCourse returns one tracked course.
func (s *CourseService) GetCourse(ctx context.Context, videoID string) (*domain.CourseRecord, error) {
	course, err := s.store.GetCourse(ctx, videoID)
	if err != nil {
		return nil, storeError(err, videoID, "load course")
	}
	return course, nil
}

// RemoveCourse stops tracking a video and deletes its progress.
func (s *CourseService) RemoveCourse(ctx context.Context, videoID string) error {
	if err := s.store.DeleteCourse(ctx, videoID); err != nil {
		return storeError(err, videoID, "remove course")
	}

	logger.WithVideo(s.logger, videoID).Info("course removed")
	if s.observer != nil {
		s.observer.CourseRemoved(videoID)
	}
	s.events.Emit(sse.NewCourseRemovedEvent(videoID))
	return nil
}

// ListParams filters and orders ListCourses.
type ListParams struct {
	Query string
	Sort  string // recent (default), progress, title, added
}

// CourseSummary is a list row for one course.
type CourseSummary struct {
	VideoID         string    `json:"videoId"`
	Title           string    `json:"title"`
	ChapterCount    int       `json:"chapterCount"`
	CompletedCount  int       `json:"completedCount"`
	ProgressPercent float64   `json:"progressPercent"`
	Sessions        int       `json:"sessions"`
	TotalWatchTime  float64   `json:"totalWatchTime"`
	WatchTimeText   string    `json:"watchTimeText"`
	ManualChapters  bool      `json:"manualChapters"`
	GenericTitles   bool      `json:"genericTitles"`
	DateAdded       time.Time `json:"dateAdded"`
	LastWatched     time.Time `json:"lastWatched"`
}

// Summarize builds the list row for a course.
func Summarize(c *domain.CourseRecord) CourseSummary {
	return CourseSummary{
		VideoID:         c.VideoID,
		Title:           c.Title,
		ChapterCount:    len(c.Chapters),
		CompletedCount:  c.CompletedCount(),
		ProgressPercent: c.ProgressPercent(),
		Sessions:        c.Sessions,
		TotalWatchTime:  c.TotalWatchTime,
		WatchTimeText:   chapters.FormatClock(c.TotalWatchTime),
		ManualChapters:  c.ManualChapters != nil,
		GenericTitles:   chapters.AnalyzeChapters(c.Chapters).NeedsUpdate,
		DateAdded:       c.DateAdded,
		LastWatched:     c.LastWatched,
	}
}

// ListCourses returns course summaries, optionally filtered by a search
// query over titles and chapter titles.
func (s *CourseService) ListCourses(ctx context.Context, params ListParams) ([]CourseSummary, error) {
	courses, err := s.store.ListCourses(ctx)
	if err != nil {
		return nil, storeError(err, "", "list courses")
	}

	if q := strings.TrimSpace(params.Query); q != "" && s.searcher != nil {
		ids, err := s.searcher.MatchingIDs(ctx, q)
		if err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "search failed")
		}
		courses = slices.DeleteFunc(courses, func(c *domain.CourseRecord) bool {
			return !ids[c.VideoID]
		})
	}

	if err := sortCourses(courses, params.Sort); err != nil {
		return nil, err
	}

	summaries := make([]CourseSummary, len(courses))
	for i, c := range courses {
		summaries[i] = Summarize(c)
	}
	return summaries, nil
}

func sortCourses(courses []*domain.CourseRecord, order string) error {
	switch order {
	case "", SortRecent:
		slices.SortStableFunc(courses, func(a, b *domain.CourseRecord) int {
			return b.LastActivity().Compare(a.LastActivity())
		})
	case SortProgress:
		slices.SortStableFunc(courses, func(a, b *domain.CourseRecord) int {
			return cmp.Compare(b.ProgressPercent(), a.ProgressPercent())
		})
	case SortTitle:
		// Collators keep internal buffers; one per sort.
		col := collate.New(language.Und, collate.IgnoreCase)
		slices.SortStableFunc(courses, func(a, b *domain.CourseRecord) int {
			return col.CompareString(a.Title, b.Title)
		})
	case SortAdded:
		slices.SortStableFunc(courses, func(a, b *domain.CourseRecord) int {
			return b.DateAdded.Compare(a.DateAdded)
		})
	default:
		return domainerrors.ValidationWithDetails("invalid sort",
			map[string]string{"sort": "must be one of: recent progress title added"})
	}
	return nil
}

// ImportPreview is the parse result of pasted chapter text.
type ImportPreview struct {
	Chapters []domain.Chapter        `json:"chapters"`
	Count    int                     `json:"count"`
	CanSave  bool                    `json:"canSave"`
	Analysis chapters.AnalysisResult `json:"analysis"`
}

// PreviewImport parses text without storing anything. Saving zero chapters
// is only offered when editing existing chapters, where it clears them.
func (s *CourseService) PreviewImport(text string, editing bool) ImportPreview {
	parsed := chapters.Extract(text)
	return ImportPreview{
		Chapters: parsed,
		Count:    len(parsed),
		CanSave:  len(parsed) > 0 || editing,
		Analysis: chapters.AnalyzeChapters(parsed),
	}
}

// ImportChapters replaces a course's chapters with ones parsed from pasted
// text and resets its chapter progress. Text with no timestamps is rejected
// with NO_CHAPTERS unless allowClear is set, in which case the chapters are
// cleared.
func (s *CourseService) ImportChapters(ctx context.Context, videoID, text string, allowClear bool) (*domain.CourseRecord, error) {
	parsed := s.extractor.Extract(text)
	if len(parsed) == 0 && !allowClear {
		return nil, domainerrors.NoChapters("no timestamps found in import text")
	}

	course, err := s.replaceChapters(ctx, videoID, func(course *domain.CourseRecord) error {
		course.ReplaceChapters(parsed, true)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithVideo(s.logger, videoID).Info("chapters imported", "chapters", len(parsed))
	s.events.Emit(sse.NewCourseUpdatedEvent(courseEventData(course)))
	return course, nil
}

// ImportInboxFile imports a chapter file dropped into the import inbox.
func (s *CourseService) ImportInboxFile(ctx context.Context, videoID, text string) (int, error) {
	course, err := s.ImportChapters(ctx, videoID, text, false)
	if err != nil {
		return 0, err
	}
	return len(course.Chapters), nil
}

// ReparseDescription drops manual chapters and parses the stored
// description again. Progress is reset.
func (s *CourseService) ReparseDescription(ctx context.Context, videoID string) (*domain.CourseRecord, error) {
	course, err := s.replaceChapters(ctx, videoID, func(course *domain.CourseRecord) error {
		parsed := s.extractor.Extract(course.Description)
		if len(parsed) == 0 {
			return domainerrors.NoChapters("no timestamps found in the video description")
		}
		course.ReplaceChapters(parsed, false)
		course.ManualChapters = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithVideo(s.logger, videoID).Info("description reparsed", "chapters", len(course.Chapters))
	s.events.Emit(sse.NewCourseUpdatedEvent(courseEventData(course)))
	return course, nil
}

// replaceChapters loads a course, applies edit and saves it whole. With a
// playback observer the write runs under its course lock so open sessions
// cannot save an older copy over it.
func (s *CourseService) replaceChapters(ctx context.Context, videoID string, edit func(*domain.CourseRecord) error) (*domain.CourseRecord, error) {
	write := func() (*domain.CourseRecord, error) {
		course, err := s.store.GetCourse(ctx, videoID)
		if err != nil {
			return nil, storeError(err, videoID, "load course")
		}
		if err := edit(course); err != nil {
			return nil, err
		}
		if err := s.store.SaveCourse(ctx, course); err != nil {
			return nil, storeError(err, videoID, "save chapters")
		}
		return course, nil
	}

	if s.observer == nil {
		return write()
	}
	return s.observer.ReplaceCourse(ctx, videoID, write)
}

// ChaptersText renders a course's chapters in the import format for editing.
func (s *CourseService) ChaptersText(ctx context.Context, videoID string) (string, error) {
	course, err := s.store.GetCourse(ctx, videoID)
	if err != nil {
		return "", storeError(err, videoID, "load course")
	}
	return chapters.FormatText(course.Chapters), nil
}

// CleanupStale deletes courses with no activity within maxAge.
func (s *CourseService) CleanupStale(ctx context.Context, maxAge time.Duration) ([]string, error) {
	if maxAge <= 0 {
		return nil, domainerrors.Validation("cleanup age must be positive")
	}

	cutoff := s.now().Add(-maxAge)
	removed, err := s.store.DeleteCoursesInactiveSince(ctx, cutoff)
	if err != nil {
		return nil, storeError(err, "", "clean up stale courses")
	}
	if len(removed) == 0 {
		return removed, nil
	}

	s.logger.Info("stale courses removed", "count", len(removed), "cutoff", cutoff)
	if s.observer != nil {
		for _, videoID := range removed {
			s.observer.CourseRemoved(videoID)
		}
	}
	s.events.Emit(sse.NewCoursesCleanedEvent(removed, cutoff))
	return removed, nil
}

func courseEventData(c *domain.CourseRecord) sse.CourseEventData {
	return sse.CourseEventData{
		VideoID:      c.VideoID,
		Title:        c.Title,
		ChapterCount: len(c.Chapters),
		Manual:       c.ManualChapters != nil,
	}
}
