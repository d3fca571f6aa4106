package playback

import "github.com/echofind/echofind/internal/domain/track"

// EventType represents a playback event type.
type EventType int

const (
	EventPreviewStarted EventType = iota // Preview clip started
	EventPreviewEnded                    // Preview clip ran to the end
	EventPreviewStopped                  // Preview clip was cut short
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventPreviewStarted:
		return "preview_started"
	case EventPreviewEnded:
		return "preview_ended"
	case EventPreviewStopped:
		return "preview_stopped"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type  EventType
	Track *track.Track
	State State
}
