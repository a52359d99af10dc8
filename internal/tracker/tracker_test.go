package tracker

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Loxed/youtube-video-tracker/internal/chapters"
	"github.com/Loxed/youtube-video-tracker/internal/domain"
)

func newRecord(t *testing.T, description string) *domain.CourseRecord {
	t.Helper()
	chs := chapters.Extract(description)
	require.NotEmpty(t, chs)
	return domain.NewCourseRecord("vid123", "Course", description, chs, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
}

func eventTypes(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func TestNew_CopiesRecord(t *testing.T) {
	rec := newRecord(t, "0:00 Intro\n1:00 Body")
	tr := New(rec)

	tr.CompleteChapterInstantly(1)

	assert.False(t, rec.Progress[1].Completed, "caller's record is untouched")
	assert.True(t, tr.Record().Progress[1].Completed)
	assert.Equal(t, 0, tr.CurrentChapter())
	assert.Equal(t, "vid123", tr.VideoID())
}

func TestOnVideoMetadataLoaded(t *testing.T) {
	tr := New(newRecord(t, "5:00 Alpha\n10:00 Beta"))

	events := tr.OnVideoMetadataLoaded(900)
	assert.Equal(t, []EventType{EventDurationResolved}, eventTypes(events))
	require.NotNil(t, tr.Record().Chapters[1].Duration)
	assert.Equal(t, 300, *tr.Record().Chapters[1].Duration)
	assert.Equal(t, 300, *tr.Record().Chapters[0].Duration)

	// Same value again: no change.
	before := tr.Record()
	assert.Empty(t, tr.OnVideoMetadataLoaded(900))
	assert.Equal(t, before, tr.Record())

	// Different value: the known duration is kept.
	assert.Empty(t, tr.OnVideoMetadataLoaded(1200))
	assert.Equal(t, 300, *tr.Record().Chapters[1].Duration)
}

func TestOnVideoMetadataLoaded_Degenerate(t *testing.T) {
	tr := New(newRecord(t, "5:00 Alpha\n10:00 Beta"))

	for _, total := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		assert.Empty(t, tr.OnVideoMetadataLoaded(total))
	}
	assert.Nil(t, tr.Record().Chapters[1].Duration)
	assert.False(t, tr.Dirty())

	// Shorter than the last chapter's offset clamps to zero.
	tr.OnVideoMetadataLoaded(550.4)
	assert.Equal(t, 0, *tr.Record().Chapters[1].Duration)

	empty := New(domain.NewCourseRecord("vid", "t", "", nil, time.Now()))
	assert.Empty(t, empty.OnVideoMetadataLoaded(100))
}

func TestOnPlaybackPosition_ChapterSelection(t *testing.T) {
	tr := New(newRecord(t, "0:30 First\n1:00 Second\n2:00 Third"))

	assert.Empty(t, tr.OnPlaybackPosition(10), "before first chapter")
	assert.Equal(t, 0, tr.CurrentChapter())

	events := tr.OnPlaybackPosition(65)
	require.Len(t, events, 1)
	assert.Equal(t, Event{Type: EventChapterChanged, Chapter: 1, Previous: 0}, events[0])

	assert.Empty(t, tr.OnPlaybackPosition(70), "same chapter, no change event")

	events = tr.OnPlaybackPosition(120)
	assert.Equal(t, []EventType{EventChapterChanged}, eventTypes(events))
	assert.Equal(t, 2, tr.CurrentChapter())

	// Seeking to before the first chapter keeps the active chapter.
	assert.Empty(t, tr.OnPlaybackPosition(5))
	assert.Equal(t, 2, tr.CurrentChapter())

	tr.OnPlaybackPosition(30)
	assert.Equal(t, 0, tr.CurrentChapter(), "exact chapter start is inside the chapter")
}

func TestOnPlaybackPosition_MonotonicWatchTime(t *testing.T) {
	// Chapter 1 starts at 50 with duration 100.
	tr := New(newRecord(t, "0:00 Warmup\n0:50 Main\n2:30 Outro"))

	for _, pos := range []float64{60, 55, 90} {
		tr.OnPlaybackPosition(pos)
		require.Equal(t, 1, tr.CurrentChapter())
	}

	p := tr.Record().Progress[1]
	assert.InDelta(t, 40, p.WatchTime, 1e-9)
	assert.False(t, p.Completed)
	assert.Equal(t, domain.ChapterInProgress, p.State())
}

func TestOnPlaybackPosition_CompletionBoundary(t *testing.T) {
	desc := "0:00 Lesson\n1:40 Next lesson"

	notYet := New(newRecord(t, desc))
	assert.Empty(t, notYet.OnPlaybackPosition(98))
	assert.False(t, notYet.Record().Progress[0].Completed)

	done := New(newRecord(t, desc))
	events := done.OnPlaybackPosition(99)
	assert.Equal(t, []Event{{Type: EventChapterCompleted, Chapter: 0}}, events)
	p := done.Record().Progress[0]
	assert.True(t, p.Completed)
	assert.InDelta(t, 100, p.WatchTime, 1e-9, "completed chapters hold their full duration")

	// Completion is reported once.
	assert.Empty(t, done.OnPlaybackPosition(99.5))
}

func TestOnPlaybackPosition_UnknownDurationNeverCompletes(t *testing.T) {
	tr := New(newRecord(t, "0:00 Intro\n1:00 Open ended"))

	tr.OnPlaybackPosition(5000)

	assert.Equal(t, 1, tr.CurrentChapter())
	assert.Equal(t, domain.ChapterProgress{}, tr.Record().Progress[1])

	tr.OnVideoMetadataLoaded(120)
	events := tr.OnPlaybackPosition(119.2)
	assert.Equal(t, []EventType{EventChapterCompleted}, eventTypes(events))
}

func TestOnPlaybackPosition_NoChapters(t *testing.T) {
	tr := New(domain.NewCourseRecord("vid", "t", "", nil, time.Now()))
	assert.Empty(t, tr.OnPlaybackPosition(42))
	assert.Empty(t, tr.OnPlaybackPosition(math.NaN()))
}

func TestOnPlaybackTick(t *testing.T) {
	tr := New(newRecord(t, "0:00 Intro\n1:00 Body"))

	assert.Empty(t, tr.OnPlaybackTick(false))
	assert.Zero(t, tr.Record().TotalWatchTime)

	tr.OnPlaybackTick(true)
	tr.OnPlaybackPosition(70)
	events := tr.OnPlaybackTick(true)

	require.Len(t, events, 1)
	assert.Equal(t, EventWatchTimeUpdated, events[0].Type)
	assert.InDelta(t, 2, events[0].TotalWatchTime, 1e-9)
	assert.InDelta(t, 2, tr.Record().TotalWatchTime, 1e-9)
}

func TestCompleteChapterInstantly_ActiveAdvances(t *testing.T) {
	tr := New(newRecord(t, "0:00 Intro\n1:00 Body\n2:00 End"))

	events := tr.CompleteChapterInstantly(0)

	assert.Equal(t, []EventType{EventChapterCompleted, EventChapterChanged, EventSeekRequested}, eventTypes(events))
	assert.Equal(t, 1, tr.CurrentChapter())
	assert.InDelta(t, 60, events[2].SeekTo, 1e-9)
	assert.Equal(t, domain.ChapterProgress{Completed: true, WatchTime: 60}, tr.Record().Progress[0])
}

func TestCompleteChapterInstantly_NonActiveStays(t *testing.T) {
	tr := New(newRecord(t, "0:00 Intro\n1:00 Body\n2:00 End"))

	events := tr.CompleteChapterInstantly(2)

	assert.Equal(t, []EventType{EventChapterCompleted}, eventTypes(events))
	assert.Equal(t, 0, tr.CurrentChapter())
	assert.Equal(t, domain.ChapterProgress{Completed: true, WatchTime: 0}, tr.Record().Progress[2],
		"unknown duration completes with zero watch time")
}

func TestCompleteChapterInstantly_LastActiveChapter(t *testing.T) {
	tr := New(newRecord(t, "0:00 Intro\n1:00 Body"))
	tr.OnPlaybackPosition(61)

	events := tr.CompleteChapterInstantly(1)

	assert.Equal(t, []EventType{EventChapterCompleted}, eventTypes(events))
	assert.Equal(t, 1, tr.CurrentChapter())
}

func TestResetChapter(t *testing.T) {
	tr := New(newRecord(t, "0:00 Intro\n1:00 Body\n2:00 End"))
	tr.OnPlaybackPosition(90)
	tr.CompleteChapterInstantly(0)
	require.Equal(t, 1, tr.CurrentChapter())

	events := tr.ResetChapter(0)
	assert.Equal(t, []EventType{EventChapterReset}, eventTypes(events), "non-active reset does not seek")
	assert.Equal(t, domain.ChapterNotStarted, tr.Record().Progress[0].State())

	events = tr.ResetChapter(1)
	require.Len(t, events, 2)
	assert.Equal(t, Event{Type: EventSeekRequested, Chapter: 1, SeekTo: 60}, events[1])
	assert.Equal(t, domain.ChapterProgress{}, tr.Record().Progress[1])
}

func TestResumePosition(t *testing.T) {
	tr := New(newRecord(t, "0:00 Intro\n3:20 Middle\n10:00 End"))

	pos, ok := tr.ResumePosition(1)
	require.True(t, ok)
	assert.InDelta(t, 200, pos, 1e-9, "untouched chapter resumes at its start")

	tr.OnPlaybackPosition(230)
	pos, _ = tr.ResumePosition(1)
	assert.InDelta(t, 230, pos, 1e-9)

	tr.CompleteChapterInstantly(1)
	pos, _ = tr.ResumePosition(1)
	assert.InDelta(t, 200, pos, 1e-9, "completed chapter resumes at its start")

	_, ok = tr.ResumePosition(3)
	assert.False(t, ok)
}

func TestJumpToChapter(t *testing.T) {
	tr := New(newRecord(t, "0:00 Intro\n1:00 Body\n2:00 End"))
	tr.OnPlaybackPosition(75)

	events := tr.JumpToChapter(1)

	assert.Equal(t, []EventType{EventSeekRequested}, eventTypes(events), "already active")
	assert.InDelta(t, 75, events[0].SeekTo, 1e-9)

	events = tr.JumpToChapter(2)
	assert.Equal(t, []EventType{EventChapterChanged, EventSeekRequested}, eventTypes(events))
	assert.Equal(t, 2, tr.CurrentChapter())
}

func TestOutOfRangeIndexesAreNoOps(t *testing.T) {
	tr := New(newRecord(t, "0:00 Intro\n1:00 Body"))
	before := tr.Record()

	for _, i := range []int{-1, 2, 100} {
		assert.Empty(t, tr.CompleteChapterInstantly(i))
		assert.Empty(t, tr.ResetChapter(i))
		assert.Empty(t, tr.JumpToChapter(i))
	}
	assert.Equal(t, before, tr.Record())
	assert.False(t, tr.Dirty())
}

func TestDirtyTracking(t *testing.T) {
	tr := New(newRecord(t, "0:00 Intro\n1:00 Body"))
	assert.False(t, tr.Dirty())

	tr.OnPlaybackPosition(10)
	assert.True(t, tr.Dirty())

	tr.MarkSaved()
	tr.OnPlaybackPosition(5)
	assert.False(t, tr.Dirty(), "seeking backward records nothing new")
}

func TestNavigate(t *testing.T) {
	stored := map[string]*domain.CourseRecord{
		"vid123": newRecord(t, "0:00 Intro\n1:00 Body"),
		"other":  domain.NewCourseRecord("other", "Other", "", nil, time.Now()),
	}
	lookup := func(id string) (*domain.CourseRecord, bool) {
		r, ok := stored[id]
		return r, ok
	}

	current := New(stored["vid123"])
	current.OnPlaybackPosition(70)

	same := Navigate(current, "vid123", lookup)
	assert.Same(t, current, same)

	next := Navigate(current, "other", lookup)
	require.NotNil(t, next)
	assert.Equal(t, "other", next.VideoID())
	assert.Equal(t, 0, next.CurrentChapter())

	assert.Nil(t, Navigate(current, "untracked", lookup))
	assert.Nil(t, Navigate(nil, "", lookup))
	assert.NotNil(t, Navigate(nil, "vid123", lookup))
}
