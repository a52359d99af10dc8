package service

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Loxed/youtube-video-tracker/internal/domain"
	domainerrors "github.com/Loxed/youtube-video-tracker/internal/errors"
	"github.com/Loxed/youtube-video-tracker/internal/ratelimit"
	"github.com/Loxed/youtube-video-tracker/internal/sse"
	"github.com/Loxed/youtube-video-tracker/internal/tracker"
)

func eventTypes(events []tracker.Event) []tracker.EventType {
	out := make([]tracker.EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func TestOpen_CountsSession(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	env.addCourse(t, "vid", "Go", sampleDescription)
	env.clock.Advance(time.Hour)

	st, err := env.playback.Open(ctx, "vid")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(st.SessionID, "ps-"))
	assert.True(t, st.Tracking)
	assert.Equal(t, 0, st.CurrentChapter)
	require.NotNil(t, st.Course)
	assert.Equal(t, 2, st.Course.Sessions)

	stored, err := env.courses.GetCourse(ctx, "vid")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Sessions)
	assert.Equal(t, env.clock.Now(), stored.LastWatched.UTC())
	assert.Equal(t, 1, env.playback.SessionCount())
	assert.Contains(t, env.events.types(), sse.EventSessionOpened)
}

func TestOpen_UnknownCourse(t *testing.T) {
	env := setupTestServices(t)

	_, err := env.playback.Open(context.Background(), "missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.Equal(t, 0, env.playback.SessionCount())
}

func TestPlayback_PositionCompletesChapter(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	env.addCourse(t, "vid", "Go", sampleDescription)

	st, err := env.playback.Open(ctx, "vid")
	require.NoError(t, err)
	sid := st.SessionID

	st, err = env.playback.Position(ctx, sid, 100)
	require.NoError(t, err)
	assert.Empty(t, st.Events)

	stored, err := env.courses.GetCourse(ctx, "vid")
	require.NoError(t, err)
	assert.InDelta(t, 100, stored.Progress[0].WatchTime, 0.001)

	st, err = env.playback.Position(ctx, sid, 329.5)
	require.NoError(t, err)
	assert.Equal(t, []tracker.EventType{tracker.EventChapterCompleted}, eventTypes(st.Events))

	st, err = env.playback.Position(ctx, sid, 400)
	require.NoError(t, err)
	assert.Equal(t, 1, st.CurrentChapter)
	assert.Equal(t, []tracker.EventType{tracker.EventChapterChanged}, eventTypes(st.Events))

	stored, err = env.courses.GetCourse(ctx, "vid")
	require.NoError(t, err)
	assert.True(t, stored.Progress[0].Completed)
	assert.InDelta(t, 330, stored.Progress[0].WatchTime, 0.001)
	assert.InDelta(t, 70, stored.Progress[1].WatchTime, 0.001)

	assert.Contains(t, env.events.types(), sse.EventType(tracker.EventChapterCompleted))
}

func TestPlayback_MetadataResolvesLastChapter(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	env.addCourse(t, "vid", "Go", sampleDescription)

	st, err := env.playback.Open(ctx, "vid")
	require.NoError(t, err)

	st, err = env.playback.Metadata(ctx, st.SessionID, 1000.7)
	require.NoError(t, err)
	assert.Equal(t, []tracker.EventType{tracker.EventDurationResolved}, eventTypes(st.Events))

	stored, err := env.courses.GetCourse(ctx, "vid")
	require.NoError(t, err)
	require.NotNil(t, stored.Chapters[2].Duration)
	assert.Equal(t, 280, *stored.Chapters[2].Duration)
}

func TestPlayback_TickRateLimited(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	env.addCourse(t, "vid", "Go", sampleDescription)

	st, err := env.playback.Open(ctx, "vid")
	require.NoError(t, err)
	sid := st.SessionID

	st, err = env.playback.Tick(ctx, sid, true)
	require.NoError(t, err)
	assert.False(t, st.Dropped)
	require.Len(t, st.Events, 1)
	assert.InDelta(t, 1, st.Events[0].TotalWatchTime, 0.001)

	st, err = env.playback.Tick(ctx, sid, true)
	require.NoError(t, err)
	assert.True(t, st.Dropped, "second tick in the same second is dropped")

	env.clock.Advance(time.Second)
	_, err = env.playback.Tick(ctx, sid, true)
	require.NoError(t, err)

	st, err = env.playback.Tick(ctx, sid, false)
	require.NoError(t, err)
	assert.False(t, st.Dropped)
	assert.Empty(t, st.Events, "paused ticks add nothing")

	stored, err := env.courses.GetCourse(ctx, "vid")
	require.NoError(t, err)
	assert.InDelta(t, 2, stored.TotalWatchTime, 0.001)
}

func TestPlayback_ChapterActions(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	env.addCourse(t, "vid", "Go", sampleDescription)

	st, err := env.playback.Open(ctx, "vid")
	require.NoError(t, err)
	sid := st.SessionID

	st, err = env.playback.CompleteChapter(ctx, sid, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, st.CurrentChapter)
	assert.Equal(t, []tracker.EventType{
		tracker.EventChapterCompleted,
		tracker.EventChapterChanged,
		tracker.EventSeekRequested,
	}, eventTypes(st.Events))
	assert.InDelta(t, 330, st.Events[2].SeekTo, 0.001)

	_, err = env.playback.Position(ctx, sid, 400)
	require.NoError(t, err)

	pos, err := env.playback.Resume(sid, 1)
	require.NoError(t, err)
	assert.InDelta(t, 400, pos, 0.001)

	st, err = env.playback.JumpToChapter(ctx, sid, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, st.CurrentChapter)
	require.NotEmpty(t, st.Events)
	assert.InDelta(t, 0, st.Events[len(st.Events)-1].SeekTo, 0.001)

	st, err = env.playback.ResetChapter(ctx, sid, 0)
	require.NoError(t, err)
	assert.Equal(t, []tracker.EventType{tracker.EventChapterReset, tracker.EventSeekRequested}, eventTypes(st.Events))

	stored, err := env.courses.GetCourse(ctx, "vid")
	require.NoError(t, err)
	assert.False(t, stored.Progress[0].Completed)

	st, err = env.playback.CompleteChapter(ctx, sid, 99)
	require.NoError(t, err)
	assert.Empty(t, st.Events)

	_, err = env.playback.Resume(sid, 99)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestPlayback_Navigate(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	env.addCourse(t, "a", "Course A", sampleDescription)
	env.addCourse(t, "b", "Course B", sampleDescription)

	st, err := env.playback.Open(ctx, "a")
	require.NoError(t, err)
	sid := st.SessionID

	_, err = env.playback.Position(ctx, sid, 400)
	require.NoError(t, err)

	st, err = env.playback.Navigate(ctx, sid, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, st.CurrentChapter, "same video keeps state")

	st, err = env.playback.Navigate(ctx, sid, "b")
	require.NoError(t, err)
	assert.Equal(t, "b", st.VideoID)
	assert.Equal(t, 0, st.CurrentChapter)

	b, err := env.courses.GetCourse(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 2, b.Sessions)

	st, err = env.playback.Navigate(ctx, sid, "untracked")
	require.NoError(t, err)
	assert.False(t, st.Tracking)

	_, err = env.playback.Position(ctx, sid, 10)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	st, err = env.playback.Navigate(ctx, sid, "a")
	require.NoError(t, err)
	assert.True(t, st.Tracking)
}

func TestPlayback_Close(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	env.addCourse(t, "vid", "Go", sampleDescription)

	st, err := env.playback.Open(ctx, "vid")
	require.NoError(t, err)

	require.NoError(t, env.playback.Close(ctx, st.SessionID))
	assert.Equal(t, 0, env.playback.SessionCount())
	assert.Contains(t, env.events.types(), sse.EventSessionClosed)

	assert.ErrorIs(t, env.playback.Close(ctx, st.SessionID), domainerrors.ErrNotFound)
	_, err = env.playback.Position(ctx, st.SessionID, 1)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestPlayback_ImportReloadsOpenSessions(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	env.addCourse(t, "vid", "Go", sampleDescription)

	st, err := env.playback.Open(ctx, "vid")
	require.NoError(t, err)
	sid := st.SessionID

	_, err = env.courses.ImportChapters(ctx, "vid", "0:00 Part One Title\n1:00 Part Two Title", false)
	require.NoError(t, err)

	// The next save must carry the imported chapters, not the old ones.
	_, err = env.playback.Position(ctx, sid, 30)
	require.NoError(t, err)

	stored, err := env.courses.GetCourse(ctx, "vid")
	require.NoError(t, err)
	require.Len(t, stored.Chapters, 2)
	assert.InDelta(t, 30, stored.Progress[0].WatchTime, 0.001)
}

func TestPlayback_StaleSessionDoesNotOverwriteImport(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	env.addCourse(t, "vid", "Go", sampleDescription)

	st, err := env.playback.Open(ctx, "vid")
	require.NoError(t, err)
	sess, err := env.playback.get(st.SessionID)
	require.NoError(t, err)

	sess.mu.Lock()
	old := sess.tracker
	sess.mu.Unlock()

	_, err = env.courses.ImportChapters(ctx, "vid", "0:00 Part One Title\n1:00 Part Two Title", false)
	require.NoError(t, err)

	// Put the session back in the state it has when it saves between the
	// import's write and its reload.
	sess.mu.Lock()
	sess.tracker = old
	sess.revision = 0
	sess.mu.Unlock()

	stale, err := env.playback.Position(ctx, st.SessionID, 400)
	require.NoError(t, err)
	assert.Empty(t, stale.Events, "events from the old outline are dropped")

	stored, err := env.courses.GetCourse(ctx, "vid")
	require.NoError(t, err)
	require.Len(t, stored.Chapters, 2)
	assert.Equal(t, "Part One Title", stored.Chapters[0].Title)

	_, err = env.playback.Position(ctx, st.SessionID, 30)
	require.NoError(t, err)
	stored, err = env.courses.GetCourse(ctx, "vid")
	require.NoError(t, err)
	assert.InDelta(t, 30, stored.Progress[0].WatchTime, 0.001)
}

func TestPlayback_ReplaceCourseFailureKeepsSessions(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	env.addCourse(t, "vid", "Go", sampleDescription)

	st, err := env.playback.Open(ctx, "vid")
	require.NoError(t, err)

	_, err = env.playback.ReplaceCourse(ctx, "vid", func() (*domain.CourseRecord, error) {
		return nil, domainerrors.NoChapters("nothing to import")
	})
	assert.ErrorIs(t, err, domainerrors.ErrNoChapters)

	// The failed write leaves the session's outline current, so progress saves.
	_, err = env.playback.Position(ctx, st.SessionID, 400)
	require.NoError(t, err)
	stored, err := env.courses.GetCourse(ctx, "vid")
	require.NoError(t, err)
	require.Len(t, stored.Chapters, 3)
	assert.InDelta(t, 70, stored.Progress[1].WatchTime, 0.001)
}

func TestPlayback_RemovedCourseIdlesSessions(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	env.addCourse(t, "vid", "Go", sampleDescription)

	st, err := env.playback.Open(ctx, "vid")
	require.NoError(t, err)

	require.NoError(t, env.courses.RemoveCourse(ctx, "vid"))

	_, err = env.playback.Position(ctx, st.SessionID, 30)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = env.courses.GetCourse(ctx, "vid")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound, "no session write resurrects the course")
}

func TestPlayback_StorageFailureSurfaces(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	env.addCourse(t, "vid", "Go", sampleDescription)

	fs := &failingStore{CourseStore: env.store}
	limiter := ratelimit.New(1, 1)
	t.Cleanup(limiter.Stop)
	svc := NewPlaybackService(fs, env.events, limiter, slog.New(slog.DiscardHandler))

	st, err := svc.Open(ctx, "vid")
	require.NoError(t, err)

	fs.failSave = true
	_, err = svc.Position(ctx, st.SessionID, 100)
	assert.ErrorIs(t, err, domainerrors.ErrStorageUnavailable)

	fs.failSave = false
	require.NoError(t, svc.Shutdown(ctx), "unsaved progress is written on shutdown")

	stored, err := env.store.GetCourse(ctx, "vid")
	require.NoError(t, err)
	assert.InDelta(t, 100, stored.Progress[0].WatchTime, 0.001)
}
