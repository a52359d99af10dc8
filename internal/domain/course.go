package domain

import "time"

// Chapter is a labelled segment of a video, anchored at a start offset.
// Duration is nil only for the last chapter until the video length is known.
type Chapter struct {
	Title     string `json:"title"`
	Timestamp string `json:"timestamp"` // display form, brackets stripped
	Seconds   int    `json:"seconds"`
	Duration  *int   `json:"duration"`
}

// DurationOf returns a pointer to d, for building chapters with a known duration.
func DurationOf(d int) *int {
	return &d
}

// HasDuration reports whether the chapter end is known and lies after its start.
func (c Chapter) HasDuration() bool {
	return c.Duration != nil && *c.Duration > 0
}

// ChapterState is the derived lifecycle stage of one chapter.
type ChapterState string

// Chapter states.
const (
	ChapterNotStarted ChapterState = "not_started"
	ChapterInProgress ChapterState = "in_progress"
	ChapterCompleted  ChapterState = "completed"
)

// ChapterProgress tracks how far a viewer got into one chapter.
// WatchTime is a high-water mark of elapsed seconds, not time played.
type ChapterProgress struct {
	Completed bool    `json:"completed"`
	WatchTime float64 `json:"watchTime"`
}

// State derives the chapter's lifecycle stage.
func (p ChapterProgress) State() ChapterState {
	switch {
	case p.Completed:
		return ChapterCompleted
	case p.WatchTime > 0:
		return ChapterInProgress
	default:
		return ChapterNotStarted
	}
}

// CourseRecord is the persisted aggregate for one tracked video.
// The JSON shape matches what the browser extension stores under "courses".
type CourseRecord struct {
	VideoID        string                  `json:"videoId"`
	Title          string                  `json:"title"`
	Description    string                  `json:"description"`
	Chapters       []Chapter               `json:"chapters"`
	ManualChapters []Chapter               `json:"manualChapters"`
	Progress       map[int]ChapterProgress `json:"progress"`
	TotalWatchTime float64                 `json:"totalWatchTime"`
	Sessions       int                     `json:"sessions"`
	DateAdded      time.Time               `json:"dateAdded"`
	LastWatched    time.Time               `json:"lastWatched"`
}

// NewCourseRecord creates a record for a video that is being added to tracking.
// The first session is the one in which the video was added.
func NewCourseRecord(videoID, title, description string, chapters []Chapter, now time.Time) *CourseRecord {
	if chapters == nil {
		chapters = []Chapter{}
	}
	return &CourseRecord{
		VideoID:     videoID,
		Title:       title,
		Description: description,
		Chapters:    chapters,
		Progress:    freshProgress(len(chapters)),
		Sessions:    1,
		DateAdded:   now,
		LastWatched: now,
	}
}

func freshProgress(n int) map[int]ChapterProgress {
	progress := make(map[int]ChapterProgress, n)
	for i := range n {
		progress[i] = ChapterProgress{}
	}
	return progress
}

// ReplaceChapters swaps the chapter list and discards all per-chapter progress.
// A manual replacement is also retained as the override source.
func (r *CourseRecord) ReplaceChapters(chapters []Chapter, manual bool) {
	if chapters == nil {
		chapters = []Chapter{}
	}
	r.Chapters = chapters
	r.Progress = freshProgress(len(chapters))
	if manual {
		r.ManualChapters = cloneChapters(chapters)
	}
}

// ProgressAt returns the progress entry for chapter i, zero if absent.
func (r *CourseRecord) ProgressAt(i int) ChapterProgress {
	return r.Progress[i]
}

// CompletedCount returns the number of chapters marked complete.
func (r *CourseRecord) CompletedCount() int {
	n := 0
	for i := range r.Chapters {
		if r.Progress[i].Completed {
			n++
		}
	}
	return n
}

// ProgressPercent is completed chapters over total chapters, 0 to 100.
func (r *CourseRecord) ProgressPercent() float64 {
	if len(r.Chapters) == 0 {
		return 0
	}
	return float64(r.CompletedCount()) / float64(len(r.Chapters)) * 100
}

// TouchSession records that the video was opened again.
func (r *CourseRecord) TouchSession(now time.Time) {
	r.Sessions++
	r.LastWatched = now
}

// LastActivity is the last time the course was watched, or added if never.
func (r *CourseRecord) LastActivity() time.Time {
	if r.LastWatched.IsZero() {
		return r.DateAdded
	}
	return r.LastWatched
}

// Clone returns a deep copy safe to mutate independently.
func (r *CourseRecord) Clone() *CourseRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Chapters = cloneChapters(r.Chapters)
	if r.ManualChapters != nil {
		c.ManualChapters = cloneChapters(r.ManualChapters)
	}
	c.Progress = make(map[int]ChapterProgress, len(r.Progress))
	for k, v := range r.Progress {
		c.Progress[k] = v
	}
	return &c
}

func cloneChapters(in []Chapter) []Chapter {
	if in == nil {
		return nil
	}
	out := make([]Chapter, len(in))
	for i, ch := range in {
		out[i] = ch
		if ch.Duration != nil {
			out[i].Duration = DurationOf(*ch.Duration)
		}
	}
	return out
}
