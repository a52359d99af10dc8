package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Loxed/youtube-video-tracker/internal/domain"
	"github.com/Loxed/youtube-video-tracker/internal/ratelimit"
	"github.com/Loxed/youtube-video-tracker/internal/search"
	"github.com/Loxed/youtube-video-tracker/internal/sse"
	"github.com/Loxed/youtube-video-tracker/internal/store"
)

const sampleDescription = `Learn Go from scratch.

0:00 Introduction
5:30 Getting Started
12:00 Advanced Topics`

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recordingEmitter) Emit(event any) {
	evt, ok := event.(sse.Event)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingEmitter) types() []sse.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sse.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recordingEmitter) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type testEnv struct {
	store    *store.Store
	courses  *CourseService
	playback *PlaybackService
	events   *recordingEmitter
	clock    *testClock
}

func setupTestServices(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	st, err := store.NewInMemory(logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	idx, err := search.NewSearchIndex(search.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	st.SetSearchIndexer(idx)

	limiter := ratelimit.New(1, 1)
	t.Cleanup(limiter.Stop)

	env := &testEnv{
		store:  st,
		events: &recordingEmitter{},
		clock:  &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	env.courses = NewCourseService(st, idx, env.events, logger)
	env.courses.now = env.clock.Now
	env.playback = NewPlaybackService(st, env.events, limiter, logger)
	env.playback.now = env.clock.Now
	env.courses.SetCourseObserver(env.playback)

	return env
}

func (e *testEnv) addCourse(t *testing.T, videoID, title, description string) *domain.CourseRecord {
	t.Helper()
	res, err := e.courses.AddCourse(context.Background(), AddCourseRequest{
		VideoID:     videoID,
		Title:       title,
		Description: description,
	})
	require.NoError(t, err)
	return res.Course
}

// failingStore wraps a real store and fails writes on demand.
type failingStore struct {
	store.CourseStore
	failSave bool
}

var errDiskFull = errors.New("disk full")

func (f *failingStore) SaveCourse(ctx context.Context, c *domain.CourseRecord) error {
	if f.failSave {
		return errDiskFull
	}
	return f.CourseStore.SaveCourse(ctx, c)
}

func (f *failingStore) ListCourses(context.Context) ([]*domain.CourseRecord, error) {
	return nil, errDiskFull
}
