package engine

import (
	"fmt"
	"time"

	"github.com/LusineKarapetyan/breathflow-playlist-creator/internal/domain/playlist"
)

// Snapshot is the engine's output contract to the UI: everything needed to
// render the player (active track highlight, progress bar, play/pause icon,
// transition indicator, skip-button availability).
type Snapshot struct {
	Position      *playlist.Position `json:"position,omitempty"`
	TrackTitle    string             `json:"track_title,omitempty"`
	State         string             `json:"state"`
	IsPlaying     bool               `json:"is_playing"`
	AutoAdvance   bool               `json:"auto_advance"`
	ElapsedSec    float64            `json:"elapsed_sec"`
	DurationSec   float64            `json:"duration_sec"`
	Elapsed       string             `json:"elapsed"`
	Duration      string             `json:"duration"`
	Transitioning bool               `json:"transitioning"`
	FadeProgress  float64            `json:"fade_progress"`
	HasNext       bool               `json:"has_next"`
	HasPrevious   bool               `json:"has_previous"`
	Degraded      bool               `json:"degraded"`
}

// formatClock renders a duration as m:ss for the progress display.
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
