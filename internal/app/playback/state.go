// Package playback drives preview clip playback with a wall-clock timer.
package playback

// State represents the playback state.
type State int

const (
	StateIdle    State = iota // No preview playing
	StatePlaying              // Preview clip is playing
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}
