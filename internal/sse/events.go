// Package sse implements Server-Sent Events for course and playback updates.
package sse

import (
	"time"

	"github.com/Loxed/youtube-video-tracker/internal/tracker"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventCourseAdded represents a video being added to tracking.
	EventCourseAdded EventType = "course.added"
	// EventCourseUpdated represents a course whose chapters were replaced.
	EventCourseUpdated EventType = "course.updated"
	// EventCourseRemoved represents a video being removed from tracking.
	EventCourseRemoved EventType = "course.removed"
	// EventCoursesCleaned represents a stale course cleanup run.
	EventCoursesCleaned EventType = "courses.cleaned"

	// EventSessionOpened represents a playback session starting on a video.
	EventSessionOpened EventType = "session.opened"
	// EventSessionClosed represents a playback session ending.
	EventSessionClosed EventType = "session.closed"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object for direct deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"` // Event-specific data as JSON object
	Type      EventType `json:"type"`

	// VideoID limits delivery to clients watching that video.
	// Empty string means "broadcast to all".
	VideoID string `json:"videoId,omitempty"`
}

// CourseEventData is the data payload for course add/update events.
type CourseEventData struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	ChapterCount int    `json:"chapterCount"`
	Manual       bool   `json:"manual"`
}

// CourseRemovedEventData is the data payload for course removal events.
type CourseRemovedEventData struct {
	VideoID   string    `json:"videoId"`
	RemovedAt time.Time `json:"removedAt"`
}

// CoursesCleanedEventData is the data payload for cleanup events.
type CoursesCleanedEventData struct {
	VideoIDs []string  `json:"videoIds"`
	Cutoff   time.Time `json:"cutoff"`
}

// SessionEventData is the data payload for session open/close events.
type SessionEventData struct {
	SessionID      string `json:"sessionId"`
	VideoID        string `json:"videoId"`
	CurrentChapter int    `json:"currentChapter"`
}

// PlaybackEventData is the data payload for tracker events.
type PlaybackEventData struct {
	SessionID string `json:"sessionId"`
	tracker.Event
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewCourseAddedEvent creates a course.added event.
func NewCourseAddedEvent(data CourseEventData) Event {
	return Event{
		Type:      EventCourseAdded,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewCourseUpdatedEvent creates a course.updated event.
// Delivered to every client so lists and open players refresh.
func NewCourseUpdatedEvent(data CourseEventData) Event {
	return Event{
		Type:      EventCourseUpdated,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewCourseRemovedEvent creates a course.removed event.
func NewCourseRemovedEvent(videoID string) Event {
	return Event{
		Type:      EventCourseRemoved,
		Timestamp: time.Now(),
		Data: CourseRemovedEventData{
			VideoID:   videoID,
			RemovedAt: time.Now(),
		},
	}
}

// NewCoursesCleanedEvent creates a courses.cleaned event.
func NewCoursesCleanedEvent(videoIDs []string, cutoff time.Time) Event {
	return Event{
		Type:      EventCoursesCleaned,
		Timestamp: time.Now(),
		Data: CoursesCleanedEventData{
			VideoIDs: videoIDs,
			Cutoff:   cutoff,
		},
	}
}

// NewSessionOpenedEvent creates a session.opened event.
func NewSessionOpenedEvent(sessionID, videoID string, current int) Event {
	return Event{
		Type:      EventSessionOpened,
		Timestamp: time.Now(),
		VideoID:   videoID,
		Data:      SessionEventData{SessionID: sessionID, VideoID: videoID, CurrentChapter: current},
	}
}

// NewSessionClosedEvent creates a session.closed event.
func NewSessionClosedEvent(sessionID, videoID string) Event {
	return Event{
		Type:      EventSessionClosed,
		Timestamp: time.Now(),
		VideoID:   videoID,
		Data:      SessionEventData{SessionID: sessionID, VideoID: videoID},
	}
}

// NewPlaybackEvent wraps a tracker event. The tracker event type is used
// as the SSE event name.
func NewPlaybackEvent(sessionID, videoID string, evt tracker.Event) Event {
	return Event{
		Type:      EventType(evt.Type),
		Timestamp: time.Now(),
		VideoID:   videoID,
		Data:      PlaybackEventData{SessionID: sessionID, Event: evt},
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Timestamp: time.Now(),
		Data: HeartbeatEventData{
			ServerTime: time.Now(),
		},
	}
}
