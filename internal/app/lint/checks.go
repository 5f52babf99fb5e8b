package lint

import (
	"fmt"
	"time"

	"github.com/LusineKarapetyan/breathflow-playlist-creator/internal/domain/playlist"
)

// DuplicateSource flags tracks that reference the same media more than once.
// A duplicated source is legal but usually a copy-paste slip in the editor.
type DuplicateSource struct{}

func (c *DuplicateSource) Name() string { return "duplicate_source" }

func (c *DuplicateSource) Description() string {
	return "Flags tracks whose source reference already appears earlier in the playlist"
}

func (c *DuplicateSource) Run(pl playlist.Playlist) []Warning {
	seen := make(map[string]string)
	var warnings []Warning
	for si, sec := range pl.Sections {
		for ti, t := range sec.Tracks {
			at := fmt.Sprintf("section %d track %d", si, ti)
			if first, ok := seen[t.Source]; ok {
				warnings = append(warnings, Warning{
					Code:    c.Name(),
					Message: fmt.Sprintf("%s repeats the source of %s", at, first),
				})
				continue
			}
			seen[t.Source] = at
		}
	}
	return warnings
}

// EmptySection flags sections with no tracks. Auto-advance stops at an
// empty section, so a stray one splits the playlist in two.
type EmptySection struct{}

func (c *EmptySection) Name() string { return "empty_section" }

func (c *EmptySection) Description() string {
	return "Flags sections without tracks, which block automatic advance"
}

func (c *EmptySection) Run(pl playlist.Playlist) []Warning {
	var warnings []Warning
	for si, sec := range pl.Sections {
		if len(sec.Tracks) > 0 {
			continue
		}
		title := sec.Title
		if title == "" {
			title = sec.ID
		}
		warnings = append(warnings, Warning{
			Code:    c.Name(),
			Message: fmt.Sprintf("section %d (%s) has no tracks; advance stops before it", si, title),
		})
	}
	return warnings
}

// defaultLeadCap is the longest crossfade that still reads as a transition
// rather than two tracks playing over each other.
const defaultLeadCap = 30 * time.Second

// LongLead flags crossfade leads above a cap.
type LongLead struct {
	// Cap overrides the default maximum lead when positive.
	Cap time.Duration
}

func (c *LongLead) Name() string { return "long_lead" }

func (c *LongLead) Description() string {
	return "Flags crossfade leads long enough to overlap most of two tracks"
}

func (c *LongLead) Run(pl playlist.Playlist) []Warning {
	limit := c.Cap
	if limit <= 0 {
		limit = defaultLeadCap
	}
	var warnings []Warning
	for si, sec := range pl.Sections {
		for ti, t := range sec.Tracks {
			if t.Transition <= limit {
				continue
			}
			warnings = append(warnings, Warning{
				Code:    c.Name(),
				Message: fmt.Sprintf("section %d track %d fades in over %v (cap %v)", si, ti, t.Transition, limit),
			})
		}
	}
	return warnings
}
