// Package tracker maps playback positions onto a course's chapter outline.
//
// A Tracker is a per-video session. It owns a private copy of the course
// record, performs no I/O, and is not safe for concurrent use: callers keep
// a single mutation owner per video and persist Record() after each step.
package tracker

import (
	"math"

	"github.com/Loxed/youtube-video-tracker/internal/domain"
)

// completionWindow is how close to a chapter's end playback must reach for
// the chapter to count as watched.
const completionWindow = 1.0

// Tracker holds the playback state for one tracked video.
type Tracker struct {
	record  *domain.CourseRecord
	current int
	dirty   bool
}

// New starts a session over a copy of record, with the first chapter active.
func New(record *domain.CourseRecord) *Tracker {
	rec := record.Clone()
	if rec.Progress == nil {
		rec.Progress = make(map[int]domain.ChapterProgress, len(rec.Chapters))
	}
	return &Tracker{record: rec}
}

// VideoID identifies the video this session tracks.
func (t *Tracker) VideoID() string {
	return t.record.VideoID
}

// CurrentChapter is the index of the active chapter.
func (t *Tracker) CurrentChapter() int {
	return t.current
}

// Record returns a copy of the session's course record for persisting.
func (t *Tracker) Record() *domain.CourseRecord {
	return t.record.Clone()
}

// Dirty reports whether the record changed since the last MarkSaved.
func (t *Tracker) Dirty() bool {
	return t.dirty
}

// MarkSaved clears the dirty flag after the caller persisted Record().
func (t *Tracker) MarkSaved() {
	t.dirty = false
}

func (t *Tracker) valid(index int) bool {
	return index >= 0 && index < len(t.record.Chapters)
}

// OnVideoMetadataLoaded fills in the last chapter's unknown duration from the
// total video length. Known durations are never overwritten, so repeated
// calls are harmless. Unknown or non-positive totals are ignored.
func (t *Tracker) OnVideoMetadataLoaded(totalSeconds float64) []Event {
	n := len(t.record.Chapters)
	if n == 0 || math.IsNaN(totalSeconds) || math.IsInf(totalSeconds, 0) || totalSeconds <= 0 {
		return nil
	}

	last := &t.record.Chapters[n-1]
	if last.Duration != nil {
		return nil
	}

	last.Duration = domain.DurationOf(max(int(math.Floor(totalSeconds))-last.Seconds, 0))
	t.dirty = true
	return []Event{{Type: EventDurationResolved, Chapter: n - 1}}
}

// OnPlaybackPosition moves the active chapter to the last chapter starting at
// or before position, raises that chapter's watch time high-water mark, and
// completes it once playback is within one second of its end.
//
// Positions before the first chapter leave the active index unchanged.
func (t *Tracker) OnPlaybackPosition(position float64) []Event {
	chapters := t.record.Chapters
	if len(chapters) == 0 || math.IsNaN(position) {
		return nil
	}

	index := -1
	for i := len(chapters) - 1; i >= 0; i-- {
		if float64(chapters[i].Seconds) <= position {
			index = i
			break
		}
	}
	if index < 0 {
		return nil
	}

	var events []Event
	if index != t.current {
		events = append(events, Event{Type: EventChapterChanged, Chapter: index, Previous: t.current})
		t.current = index
	}

	chapter := chapters[index]
	if !chapter.HasDuration() {
		// No deadline until the duration is known.
		return events
	}

	progress := t.record.Progress[index]
	if progress.Completed {
		return events
	}

	duration := float64(*chapter.Duration)
	elapsed := position - float64(chapter.Seconds)
	if elapsed > progress.WatchTime {
		progress.WatchTime = elapsed
		t.dirty = true
	}

	if duration-elapsed <= completionWindow {
		progress.Completed = true
		progress.WatchTime = duration
		t.dirty = true
		events = append(events, Event{Type: EventChapterCompleted, Chapter: index})
	}

	t.record.Progress[index] = progress
	return events
}

// OnPlaybackTick adds one second of video-wide watch time when the player
// is actively playing. Callers bound ticks to one per wall-clock second.
func (t *Tracker) OnPlaybackTick(playing bool) []Event {
	if !playing {
		return nil
	}
	t.record.TotalWatchTime++
	t.dirty = true
	return []Event{{Type: EventWatchTimeUpdated, Chapter: t.current, TotalWatchTime: t.record.TotalWatchTime}}
}

// CompleteChapterInstantly marks a chapter watched in full. Completing the
// active chapter moves on to the next one, if any, and requests a seek there.
func (t *Tracker) CompleteChapterInstantly(index int) []Event {
	if !t.valid(index) {
		return nil
	}

	watch := 0.0
	if d := t.record.Chapters[index].Duration; d != nil {
		watch = float64(*d)
	}
	t.record.Progress[index] = domain.ChapterProgress{Completed: true, WatchTime: watch}
	t.dirty = true

	events := []Event{{Type: EventChapterCompleted, Chapter: index}}
	if index == t.current && t.valid(index+1) {
		events = append(events, t.JumpToChapter(index+1)...)
	}
	return events
}

// ResetChapter clears a chapter back to not started. Resetting the active
// chapter requests a seek to its start.
func (t *Tracker) ResetChapter(index int) []Event {
	if !t.valid(index) {
		return nil
	}

	t.record.Progress[index] = domain.ChapterProgress{}
	t.dirty = true

	events := []Event{{Type: EventChapterReset, Chapter: index}}
	if index == t.current {
		events = append(events, Event{
			Type:    EventSeekRequested,
			Chapter: index,
			SeekTo:  float64(t.record.Chapters[index].Seconds),
		})
	}
	return events
}

// ResumePosition is where playback should start when entering a chapter:
// its start when completed or untouched, otherwise where the viewer left off.
func (t *Tracker) ResumePosition(index int) (float64, bool) {
	if !t.valid(index) {
		return 0, false
	}
	start := float64(t.record.Chapters[index].Seconds)
	progress := t.record.Progress[index]
	if progress.Completed || progress.WatchTime <= 0 {
		return start, true
	}
	return start + progress.WatchTime, true
}

// JumpToChapter activates a chapter and requests a seek to its resume position.
func (t *Tracker) JumpToChapter(index int) []Event {
	target, ok := t.ResumePosition(index)
	if !ok {
		return nil
	}

	var events []Event
	if index != t.current {
		events = append(events, Event{Type: EventChapterChanged, Chapter: index, Previous: t.current})
		t.current = index
	}
	return append(events, Event{Type: EventSeekRequested, Chapter: index, SeekTo: target})
}

// Navigate reacts to the viewer moving to another video. Staying on the same
// video keeps the session; a different tracked video starts a fresh session
// at the first chapter; an untracked video ends tracking (nil).
func Navigate(current *Tracker, videoID string, lookup func(videoID string) (*domain.CourseRecord, bool)) *Tracker {
	if current != nil && current.VideoID() == videoID {
		return current
	}
	if videoID == "" {
		return nil
	}
	record, ok := lookup(videoID)
	if !ok || record == nil {
		return nil
	}
	return New(record)
}
