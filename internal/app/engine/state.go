// Package engine provides the playback transition engine: the playback
// state machine, the crossfade transition controller and the session swap
// coordinator.
package engine

// State represents the playback state.
type State int

const (
	StateIdle          State = iota // No track loaded
	StatePaused                     // Track loaded, not playing
	StatePlaying                    // Track playing
	StateTransitioning              // Track playing with a crossfade in flight
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	case StateTransitioning:
		return "transitioning"
	default:
		return "unknown"
	}
}
