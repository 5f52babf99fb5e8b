// Package lint provides the check chain for submitted playlists. Checks
// never reject a playlist; they produce warnings the editor surfaces so the
// author can fix problems before playback reaches them.
package lint

import (
	"fmt"

	"github.com/LusineKarapetyan/breathflow-playlist-creator/internal/domain/playlist"
)

// Warning flags one spot in a submitted playlist.
type Warning struct {
	Code    string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}

// Check is the interface for playlist checks.
type Check interface {
	// Name returns the check name.
	Name() string
	// Description returns a human-readable description.
	Description() string
	// Run inspects the playlist and returns any warnings.
	Run(pl playlist.Playlist) []Warning
}

// Chain executes checks in sequence and collects their warnings.
type Chain struct {
	checks []Check
}

// NewChain creates a chain with the default checks.
func NewChain() *Chain {
	c := &Chain{}
	c.Add(&DuplicateSource{})
	c.Add(&EmptySection{})
	c.Add(&LongLead{})
	return c
}

// Add adds a check to the chain.
func (c *Chain) Add(check Check) {
	c.checks = append(c.checks, check)
}

// Run executes all checks against the playlist.
func (c *Chain) Run(pl playlist.Playlist) []Warning {
	var warnings []Warning
	for _, check := range c.checks {
		warnings = append(warnings, check.Run(pl)...)
	}
	return warnings
}

// Checks returns all checks in the chain.
func (c *Chain) Checks() []Check {
	return c.checks
}
