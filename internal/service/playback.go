package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Loxed/youtube-video-tracker/internal/domain"
	domainerrors "github.com/Loxed/youtube-video-tracker/internal/errors"
	"github.com/Loxed/youtube-video-tracker/internal/id"
	"github.com/Loxed/youtube-video-tracker/internal/logger"
	"github.com/Loxed/youtube-video-tracker/internal/ratelimit"
	"github.com/Loxed/youtube-video-tracker/internal/sse"
	"github.com/Loxed/youtube-video-tracker/internal/store"
	"github.com/Loxed/youtube-video-tracker/internal/tracker"
)

// playbackSession is one viewer's tab. The tracker is nil while the tab is
// on a video that is not tracked.
type playbackSession struct {
	mu       sync.Mutex
	id       string
	tracker  *tracker.Tracker
	revision uint64 // chapter revision the tracker was loaded at
}

// courseLock serializes writes to one course record. Revision counts chapter
// replacements, so a session holding an older copy knows not to save it.
type courseLock struct {
	mu       sync.Mutex
	revision uint64
}

// SessionState is what a client needs after every playback call.
type SessionState struct {
	SessionID      string               `json:"sessionId"`
	VideoID        string               `json:"videoId,omitempty"`
	Tracking       bool                 `json:"tracking"`
	CurrentChapter int                  `json:"currentChapter"`
	Events         []tracker.Event      `json:"events"`
	Dropped        bool                 `json:"dropped,omitempty"` // tick over the rate limit
	Course         *domain.CourseRecord `json:"course,omitempty"`
}

// PlaybackService owns the tracker for each open playback session and
// persists the course record after each state change.
type PlaybackService struct {
	store   store.CourseStore
	events  store.EventEmitter
	ticks   *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
	now     func() time.Time
	mu      sync.RWMutex
	session map[string]*playbackSession

	locksMu sync.Mutex
	locks   map[string]*courseLock
}

// NewPlaybackService creates a new playback service. ticks bounds how often
// a session may add watch time.
func NewPlaybackService(courses store.CourseStore, events store.EventEmitter, ticks *ratelimit.KeyedRateLimiter, logger *slog.Logger) *PlaybackService {
	return &PlaybackService{
		store:   courses,
		events:  events,
		ticks:   ticks,
		logger:  logger,
		now:     time.Now,
		session: make(map[string]*playbackSession),
		locks:   make(map[string]*courseLock),
	}
}

// Open starts a playback session on a tracked video and counts a new
// viewing session for it.
func (s *PlaybackService) Open(ctx context.Context, videoID string) (*SessionState, error) {
	t, revision, err := s.startTracking(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domainerrors.NotFoundf("course %s not found", videoID)
	}

	sessionID, err := id.Generate(id.PrefixSession)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate session ID")
	}

	sess := &playbackSession{id: sessionID, tracker: t, revision: revision}
	s.mu.Lock()
	s.session[sessionID] = sess
	s.mu.Unlock()

	logger.WithSession(s.logger, sessionID, videoID).Debug("playback session opened")
	s.events.Emit(sse.NewSessionOpenedEvent(sessionID, videoID, t.CurrentChapter()))

	return s.state(sess, nil, true), nil
}

// startTracking loads a course, counts the new session and returns a
// tracker for it with the chapter revision it was loaded at. An untracked
// video yields a nil tracker and no error.
func (s *PlaybackService) startTracking(ctx context.Context, videoID string) (*tracker.Tracker, uint64, error) {
	lock := s.courseLock(videoID)
	lock.mu.Lock()
	defer lock.mu.Unlock()

	course, err := s.store.GetCourse(ctx, videoID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, lock.revision, nil
	}
	if err != nil {
		return nil, 0, storeError(err, videoID, "load course")
	}

	course.TouchSession(s.now())
	if err := s.store.SaveCourse(ctx, course); err != nil {
		return nil, 0, storeError(err, videoID, "record session")
	}

	t := tracker.Navigate(nil, videoID, func(string) (*domain.CourseRecord, bool) {
		return course, true
	})
	return t, lock.revision, nil
}

// courseLock returns the write lock for one course.
func (s *PlaybackService) courseLock(videoID string) *courseLock {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l, ok := s.locks[videoID]
	if !ok {
		l = &courseLock{}
		s.locks[videoID] = l
	}
	return l
}

// Navigate follows the viewer to another video. Staying on the same video
// keeps the session state; a tracked video starts fresh at its first
// chapter; an untracked video leaves the session idle.
func (s *PlaybackService) Navigate(ctx context.Context, sessionID, videoID string) (*SessionState, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.tracker != nil && sess.tracker.VideoID() == videoID {
		return s.state(sess, nil, false), nil
	}

	if err := s.flush(ctx, sess); err != nil {
		return nil, err
	}

	previous := ""
	if sess.tracker != nil {
		previous = sess.tracker.VideoID()
	}

	next, revision, err := s.startTracking(ctx, videoID)
	if err != nil {
		return nil, err
	}
	sess.tracker = next
	sess.revision = revision

	if previous != "" {
		s.events.Emit(sse.NewSessionClosedEvent(sessionID, previous))
	}
	if next != nil {
		s.events.Emit(sse.NewSessionOpenedEvent(sessionID, videoID, next.CurrentChapter()))
	}

	logger.WithSession(s.logger, sessionID, videoID).Debug("playback session navigated",
		"from", previous,
		"tracking", next != nil,
	)
	return s.state(sess, nil, true), nil
}

// Close ends a session, saving any unsaved progress first.
func (s *PlaybackService) Close(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.session[sessionID]
	delete(s.session, sessionID)
	s.mu.Unlock()
	if !ok {
		return domainerrors.NotFoundf("playback session %s not found", sessionID)
	}

	s.ticks.Forget(sessionID)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	err := s.flush(ctx, sess)
	if sess.tracker != nil {
		s.events.Emit(sse.NewSessionClosedEvent(sessionID, sess.tracker.VideoID()))
	}
	s.logger.Debug("playback session closed", slog.String(logger.KeySession, sessionID))
	return err
}

// SessionCount returns the number of open sessions.
func (s *PlaybackService) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.session)
}

// Metadata reports the video's total length once the player knows it.
func (s *PlaybackService) Metadata(ctx context.Context, sessionID string, totalSeconds float64) (*SessionState, error) {
	return s.apply(ctx, sessionID, func(t *tracker.Tracker) []tracker.Event {
		return t.OnVideoMetadataLoaded(totalSeconds)
	})
}

// Position reports the current playback position in seconds.
func (s *PlaybackService) Position(ctx context.Context, sessionID string, position float64) (*SessionState, error) {
	return s.apply(ctx, sessionID, func(t *tracker.Tracker) []tracker.Event {
		return t.OnPlaybackPosition(position)
	})
}

// Tick reports one second of wall-clock time. Only playing ticks add watch
// time, and ticks arriving faster than the configured rate are dropped.
func (s *PlaybackService) Tick(ctx context.Context, sessionID string, playing bool) (*SessionState, error) {
	if playing && !s.ticks.AllowAt(sessionID, s.now()) {
		sess, err := s.get(sessionID)
		if err != nil {
			return nil, err
		}
		sess.mu.Lock()
		defer sess.mu.Unlock()
		st := s.state(sess, nil, false)
		st.Dropped = true
		return st, nil
	}
	return s.apply(ctx, sessionID, func(t *tracker.Tracker) []tracker.Event {
		return t.OnPlaybackTick(playing)
	})
}

// CompleteChapter marks a chapter watched in full.
func (s *PlaybackService) CompleteChapter(ctx context.Context, sessionID string, index int) (*SessionState, error) {
	return s.apply(ctx, sessionID, func(t *tracker.Tracker) []tracker.Event {
		return t.CompleteChapterInstantly(index)
	})
}

// ResetChapter clears a chapter's progress.
func (s *PlaybackService) ResetChapter(ctx context.Context, sessionID string, index int) (*SessionState, error) {
	return s.apply(ctx, sessionID, func(t *tracker.Tracker) []tracker.Event {
		return t.ResetChapter(index)
	})
}

// JumpToChapter activates a chapter and requests a seek to where the viewer
// left off in it.
func (s *PlaybackService) JumpToChapter(ctx context.Context, sessionID string, index int) (*SessionState, error) {
	return s.apply(ctx, sessionID, func(t *tracker.Tracker) []tracker.Event {
		return t.JumpToChapter(index)
	})
}

// Resume returns the position playback should start from for a chapter.
func (s *PlaybackService) Resume(sessionID string, index int) (float64, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return 0, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.tracker == nil {
		return 0, errIdleSession(sessionID)
	}
	position, ok := sess.tracker.ResumePosition(index)
	if !ok {
		return 0, domainerrors.Validationf("chapter %d does not exist", index)
	}
	return position, nil
}

// ReplaceCourse runs write while no playback session can save videoID, then
// loads the written record into every session watching it. A session that
// tries to save its older copy in between reloads instead of saving.
func (s *PlaybackService) ReplaceCourse(ctx context.Context, videoID string, write func() (*domain.CourseRecord, error)) (*domain.CourseRecord, error) {
	lock := s.courseLock(videoID)
	lock.mu.Lock()
	course, err := write()
	if err == nil {
		lock.revision++
	}
	revision := lock.revision
	lock.mu.Unlock()
	if err != nil {
		return nil, err
	}

	for _, sess := range s.watching(videoID) {
		sess.mu.Lock()
		if sess.tracker != nil && sess.tracker.VideoID() == videoID && sess.revision < revision {
			sess.tracker = tracker.New(course)
			sess.revision = revision
			logger.WithSession(s.logger, sess.id, videoID).Debug("session reloaded replaced chapters")
		}
		sess.mu.Unlock()
	}
	return course, nil
}

// CourseRemoved stops tracking in every session watching a removed course.
func (s *PlaybackService) CourseRemoved(videoID string) {
	for _, sess := range s.watching(videoID) {
		sess.mu.Lock()
		if sess.tracker != nil && sess.tracker.VideoID() == videoID {
			sess.tracker = nil
		}
		sess.mu.Unlock()
	}
}

// Shutdown saves unsaved progress of every open session.
func (s *PlaybackService) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	sessions := make([]*playbackSession, 0, len(s.session))
	for _, sess := range s.session {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	var errs []error
	for _, sess := range sessions {
		sess.mu.Lock()
		errs = append(errs, s.flush(ctx, sess))
		sess.mu.Unlock()
	}
	return errors.Join(errs...)
}

func (s *PlaybackService) watching(videoID string) []*playbackSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*playbackSession
	for _, sess := range s.session {
		sess.mu.Lock()
		if sess.tracker != nil && sess.tracker.VideoID() == videoID {
			out = append(out, sess)
		}
		sess.mu.Unlock()
	}
	return out
}

// apply runs one tracker step, persists the record if it changed and
// broadcasts the resulting events.
func (s *PlaybackService) apply(ctx context.Context, sessionID string, step func(*tracker.Tracker) []tracker.Event) (*SessionState, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.tracker == nil {
		return nil, errIdleSession(sessionID)
	}

	stepped := sess.tracker
	events := step(stepped)
	if err := s.flush(ctx, sess); err != nil {
		return nil, err
	}
	if sess.tracker == nil {
		return nil, errIdleSession(sessionID)
	}
	if sess.tracker != stepped {
		// The chapters were replaced under this step; its events describe
		// the old outline.
		events = nil
	}

	videoID := sess.tracker.VideoID()
	for _, evt := range events {
		s.events.Emit(sse.NewPlaybackEvent(sessionID, videoID, evt))
	}
	return s.state(sess, events, false), nil
}

// flush writes the session's record when the tracker has unsaved changes.
// If the chapters were replaced since the tracker was loaded, the unsaved
// progress is dropped and the session reloads the current record instead.
// Write failures are returned as-is to the caller and never retried here.
func (s *PlaybackService) flush(ctx context.Context, sess *playbackSession) error {
	t := sess.tracker
	if t == nil || !t.Dirty() {
		return nil
	}
	videoID := t.VideoID()
	log := logger.WithSession(s.logger, sess.id, videoID)

	lock := s.courseLock(videoID)
	lock.mu.Lock()
	defer lock.mu.Unlock()

	if sess.revision != lock.revision {
		course, err := s.store.GetCourse(ctx, videoID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			sess.tracker = nil
		case err != nil:
			log.Error("failed to reload replaced course", logger.Err(err))
			return storeError(err, videoID, "reload course")
		default:
			sess.tracker = tracker.New(course)
		}
		sess.revision = lock.revision
		log.Info("dropped playback progress recorded against replaced chapters")
		return nil
	}

	if err := s.store.SaveCourse(ctx, t.Record()); err != nil {
		log.Error("failed to save playback progress", logger.Err(err))
		return storeError(err, videoID, "save playback progress")
	}
	t.MarkSaved()
	return nil
}

func (s *PlaybackService) get(sessionID string) (*playbackSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.session[sessionID]
	if !ok {
		return nil, domainerrors.NotFoundf("playback session %s not found", sessionID)
	}
	return sess, nil
}

func (s *PlaybackService) state(sess *playbackSession, events []tracker.Event, withCourse bool) *SessionState {
	if events == nil {
		events = []tracker.Event{}
	}
	st := &SessionState{SessionID: sess.id, Events: events}
	if t := sess.tracker; t != nil {
		st.VideoID = t.VideoID()
		st.Tracking = true
		st.CurrentChapter = t.CurrentChapter()
		if withCourse {
			st.Course = t.Record()
		}
	}
	return st
}

func errIdleSession(sessionID string) error {
	return domainerrors.NotFoundf("playback session %s is not on a tracked video", sessionID)
}
