package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Loxed/youtube-video-tracker/internal/domain"
	domainerrors "github.com/Loxed/youtube-video-tracker/internal/errors"
	"github.com/Loxed/youtube-video-tracker/internal/page"
	"github.com/Loxed/youtube-video-tracker/internal/sse"
)

func TestAddCourse_ExtractsChapters(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()

	res, err := env.courses.AddCourse(ctx, AddCourseRequest{
		VideoID:     "dQw4w9WgXcQ",
		Title:       "Go Fundamentals",
		Description: sampleDescription,
	})
	require.NoError(t, err)
	assert.False(t, res.NeedsManualImport)

	course := res.Course
	require.Len(t, course.Chapters, 3)
	assert.Equal(t, "Introduction", course.Chapters[0].Title)
	assert.Equal(t, 330, *course.Chapters[0].Duration)
	assert.Equal(t, 390, *course.Chapters[1].Duration)
	assert.Nil(t, course.Chapters[2].Duration)
	assert.Equal(t, 1, course.Sessions)
	assert.Equal(t, env.clock.Now(), course.DateAdded)

	stored, err := env.courses.GetCourse(ctx, "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Len(t, stored.Chapters, 3)
	assert.Len(t, stored.Progress, 3)

	assert.Equal(t, []sse.EventType{sse.EventCourseAdded}, env.events.types())
}

func TestAddCourse_NoTimestampsNeedsManualImport(t *testing.T) {
	env := setupTestServices(t)

	res, err := env.courses.AddCourse(context.Background(), AddCourseRequest{
		VideoID:     "vid",
		Title:       "Talk",
		Description: "A talk with no outline.",
	})
	require.NoError(t, err)
	assert.True(t, res.NeedsManualImport)
	assert.Empty(t, res.Course.Chapters)
}

func TestAddCourse_Identity(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()

	res, err := env.courses.AddCourse(ctx, AddCourseRequest{URL: "https://www.youtube.com/watch?v=abc123&t=42s"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", res.Course.VideoID)
	assert.Equal(t, page.UnknownTitle, res.Course.Title)

	_, err = env.courses.AddCourse(ctx, AddCourseRequest{URL: "https://www.youtube.com/"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = env.courses.AddCourse(ctx, AddCourseRequest{VideoID: "abc123"})
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)
}

func TestAddCourse_FromWatchPage(t *testing.T) {
	env := setupTestServices(t)

	html := `<html><head>
<link rel="canonical" href="https://www.youtube.com/watch?v=pageVid">
</head><body>
<h1 class="title">Kubernetes in Depth</h1>
<div id="description-text">0:00 Cluster Basics
10:00 Deployments</div>
</body></html>`

	res, err := env.courses.AddCourse(context.Background(), AddCourseRequest{HTML: html})
	require.NoError(t, err)

	assert.Equal(t, "pageVid", res.Course.VideoID)
	assert.Equal(t, "Kubernetes in Depth", res.Course.Title)
	require.Len(t, res.Course.Chapters, 2)
	assert.Equal(t, "Deployments", res.Course.Chapters[1].Title)
}

func TestRemoveCourse(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	env.addCourse(t, "vid", "Go", sampleDescription)

	require.NoError(t, env.courses.RemoveCourse(ctx, "vid"))

	_, err := env.courses.GetCourse(ctx, "vid")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.ErrorIs(t, env.courses.RemoveCourse(ctx, "vid"), domainerrors.ErrNotFound)
	assert.Contains(t, env.events.types(), sse.EventCourseRemoved)
}

func TestListCourses_Sorting(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()

	env.addCourse(t, "a", "banana basics", sampleDescription)
	env.clock.Advance(time.Hour)
	env.addCourse(t, "b", "Apple Advanced", sampleDescription)
	env.clock.Advance(time.Hour)
	env.addCourse(t, "c", "cherry course", sampleDescription)

	// Finish one chapter of "a" so it leads by progress.
	course, err := env.store.GetCourse(ctx, "a")
	require.NoError(t, err)
	course.Progress[0] = domain.ChapterProgress{Completed: true, WatchTime: 330}
	course.LastWatched = env.clock.Now().Add(time.Hour)
	require.NoError(t, env.store.SaveCourse(ctx, course))

	ids := func(sort string) []string {
		t.Helper()
		list, err := env.courses.ListCourses(ctx, ListParams{Sort: sort})
		require.NoError(t, err)
		out := make([]string, len(list))
		for i, s := range list {
			out[i] = s.VideoID
		}
		return out
	}

	assert.Equal(t, []string{"a", "c", "b"}, ids(""))
	assert.Equal(t, []string{"a", "c", "b"}, ids(SortRecent))
	assert.Equal(t, "a", ids(SortProgress)[0])
	assert.Equal(t, []string{"b", "a", "c"}, ids(SortTitle))
	assert.Equal(t, []string{"c", "b", "a"}, ids(SortAdded))

	_, err = env.courses.ListCourses(ctx, ListParams{Sort: "random"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestListCourses_Summary(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	env.addCourse(t, "vid", "Go", sampleDescription)

	course, err := env.store.GetCourse(ctx, "vid")
	require.NoError(t, err)
	course.Progress[1] = domain.ChapterProgress{Completed: true, WatchTime: 390}
	course.TotalWatchTime = 3725
	require.NoError(t, env.store.SaveCourse(ctx, course))

	list, err := env.courses.ListCourses(ctx, ListParams{})
	require.NoError(t, err)
	require.Len(t, list, 1)

	s := list[0]
	assert.Equal(t, 3, s.ChapterCount)
	assert.Equal(t, 1, s.CompletedCount)
	assert.InDelta(t, 33.333, s.ProgressPercent, 0.01)
	assert.Equal(t, "1:02:05", s.WatchTimeText)
	assert.False(t, s.ManualChapters)
	assert.False(t, s.GenericTitles)
}

func TestListCourses_Query(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()

	env.addCourse(t, "k8s", "Kubernetes Tutorial", "0:00 Pods\n5:00 Services")
	env.addCourse(t, "go", "Go Fundamentals", "0:00 Goroutines\n5:00 Channels")

	list, err := env.courses.ListCourses(ctx, ListParams{Query: "kubernetes"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "k8s", list[0].VideoID)

	list, err = env.courses.ListCourses(ctx, ListParams{Query: "channels"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "go", list[0].VideoID)

	env.addCourse(t, "js1", "JavaScript Crash Course", "0:00 Variables\n5:00 Functions")
	env.addCourse(t, "pasta", "Cooking Pasta", "Music written in javascript.\n0:00 Boiling Water\n5:00 Sauce")

	list, err = env.courses.ListCourses(ctx, ListParams{Query: "Script"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "js1", list[0].VideoID)

	list, err = env.courses.ListCourses(ctx, ListParams{Query: "javascript"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "js1", list[0].VideoID)

	list, err = env.courses.ListCourses(ctx, ListParams{Query: "   "})
	require.NoError(t, err)
	assert.Len(t, list, 4)
}

func TestListCourses_StorageFailure(t *testing.T) {
	env := setupTestServices(t)
	svc := NewCourseService(&failingStore{CourseStore: env.store}, nil, env.events, slog.New(slog.DiscardHandler))

	_, err := svc.ListCourses(context.Background(), ListParams{})
	assert.ErrorIs(t, err, domainerrors.ErrStorageUnavailable)
	assert.ErrorIs(t, err, errDiskFull)
}

func TestPreviewImport(t *testing.T) {
	env := setupTestServices(t)

	p := env.courses.PreviewImport("0:00 Chapter 1\n2:00 Chapter 2\n4:00 Real Title", false)
	assert.Equal(t, 3, p.Count)
	assert.True(t, p.CanSave)
	assert.Equal(t, 2, p.Analysis.GenericCount)

	empty := env.courses.PreviewImport("no timestamps", false)
	assert.Equal(t, 0, empty.Count)
	assert.NotNil(t, empty.Chapters)
	assert.False(t, empty.CanSave)

	assert.True(t, env.courses.PreviewImport("no timestamps", true).CanSave)
}

func TestImportChapters(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	env.addCourse(t, "vid", "Go", "")

	course, err := env.courses.ImportChapters(ctx, "vid", "0:00 Setup\n3:00 Hello World", false)
	require.NoError(t, err)
	require.Len(t, course.Chapters, 2)
	assert.Equal(t, course.Chapters, course.ManualChapters)

	stored, err := env.courses.GetCourse(ctx, "vid")
	require.NoError(t, err)
	assert.Len(t, stored.ManualChapters, 2)
	assert.Len(t, stored.Progress, 2)

	assert.Contains(t, env.events.types(), sse.EventCourseUpdated)
}

func TestImportChapters_NothingParsed(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	env.addCourse(t, "vid", "Go", sampleDescription)

	_, err := env.courses.ImportChapters(ctx, "vid", "nothing here", false)
	assert.ErrorIs(t, err, domainerrors.ErrNoChapters)

	stored, err := env.courses.GetCourse(ctx, "vid")
	require.NoError(t, err)
	assert.Len(t, stored.Chapters, 3, "rejected import leaves chapters alone")

	cleared, err := env.courses.ImportChapters(ctx, "vid", "nothing here", true)
	require.NoError(t, err)
	assert.Empty(t, cleared.Chapters)
	assert.Empty(t, cleared.Progress)
}

func TestImportChapters_UnknownCourse(t *testing.T) {
	env := setupTestServices(t)

	_, err := env.courses.ImportChapters(context.Background(), "missing", "0:00 Intro", false)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestImportInboxFile(t *testing.T) {
	env := setupTestServices(t)
	env.addCourse(t, "vid", "Go", "")

	n, err := env.courses.ImportInboxFile(context.Background(), "vid", "0:00 One Thing\n1:00 Another Thing")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestReparseDescription(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	env.addCourse(t, "vid", "Go", sampleDescription)

	_, err := env.courses.ImportChapters(ctx, "vid", "0:00 Only One", false)
	require.NoError(t, err)

	course, err := env.courses.ReparseDescription(ctx, "vid")
	require.NoError(t, err)
	assert.Len(t, course.Chapters, 3)
	assert.Nil(t, course.ManualChapters)

	env.addCourse(t, "bare", "Talk", "no outline")
	_, err = env.courses.ReparseDescription(ctx, "bare")
	assert.ErrorIs(t, err, domainerrors.ErrNoChapters)
}

func TestChaptersText(t *testing.T) {
	env := setupTestServices(t)
	env.addCourse(t, "vid", "Go", sampleDescription)

	text, err := env.courses.ChaptersText(context.Background(), "vid")
	require.NoError(t, err)
	assert.Equal(t, "0:00 Introduction\n5:30 Getting Started\n12:00 Advanced Topics", text)
}

func TestCleanupStale(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()

	env.addCourse(t, "old", "Old Course", sampleDescription)
	env.clock.Advance(40 * 24 * time.Hour)
	env.addCourse(t, "new", "New Course", sampleDescription)
	env.events.reset()

	removed, err := env.courses.CleanupStale(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, removed)
	assert.Equal(t, []sse.EventType{sse.EventCoursesCleaned}, env.events.types())

	_, err = env.courses.GetCourse(ctx, "new")
	assert.NoError(t, err)

	removed, err = env.courses.CleanupStale(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, removed)

	_, err = env.courses.CleanupStale(ctx, 0)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}
