package tracker

// EventType names a state change produced by a Tracker.
type EventType string

// Tracker events. Values double as SSE event names.
const (
	EventChapterChanged   EventType = "chapter.changed"
	EventChapterCompleted EventType = "chapter.completed"
	EventChapterReset     EventType = "chapter.reset"
	EventDurationResolved EventType = "chapter.duration_resolved"
	EventSeekRequested    EventType = "seek.requested"
	EventWatchTimeUpdated EventType = "watchtime.updated"
)

// Event describes one change. Only the fields relevant to Type are meaningful.
type Event struct {
	Type           EventType `json:"type"`
	Chapter        int       `json:"chapter"`
	Previous       int       `json:"previous"`       // chapter.changed
	SeekTo         float64   `json:"seekTo"`         // seek.requested
	TotalWatchTime float64   `json:"totalWatchTime"` // watchtime.updated
}
