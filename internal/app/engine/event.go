package engine

import "github.com/LusineKarapetyan/breathflow-playlist-creator/internal/domain/playlist"

// EventType represents an engine event type.
type EventType int

const (
	EventTrackChanged       EventType = iota // Current position changed
	EventStateChanged                        // Play/pause or auto-advance flipped
	EventTransitionStarted                   // Staging session created for a crossfade
	EventTransitionFinished                  // Crossfade finalized, staging promoted
	EventTransitionAborted                   // Pending crossfade abandoned
	EventPlaylistEnded                       // Natural end with no next track
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackChanged:
		return "track_changed"
	case EventStateChanged:
		return "state_changed"
	case EventTransitionStarted:
		return "transition_started"
	case EventTransitionFinished:
		return "transition_finished"
	case EventTransitionAborted:
		return "transition_aborted"
	case EventPlaylistEnded:
		return "playlist_ended"
	default:
		return "unknown"
	}
}

// Event represents an engine event.
type Event struct {
	Type     EventType
	Position playlist.Position // Position the event refers to
	State    State             // State after the event
}
