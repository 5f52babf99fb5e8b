// Package playlist provides the playlist domain entities.
package playlist

import "time"

// Track represents a single playable entry.
type Track struct {
	ID         string        // Unique track ID
	Source     string        // Provider source reference (opaque to the engine)
	Title      string        // Display title
	Transition time.Duration // Crossfade lead time; the incoming track's value governs timing
}

// Section represents a named, ordered group of tracks.
type Section struct {
	ID     string
	Title  string
	Tracks []Track
}

// Playlist represents an ordered sequence of sections.
// The engine treats a playlist value as read-only.
type Playlist struct {
	Sections []Section
}

// Position points at a track within a playlist.
// A position is only meaningful against the playlist of the moment;
// callers must revalidate after any playlist swap.
type Position struct {
	Section int
	Track   int
}

// Contains reports whether pos addresses an existing track.
func (p Playlist) Contains(pos Position) bool {
	if pos.Section < 0 || pos.Section >= len(p.Sections) {
		return false
	}
	return pos.Track >= 0 && pos.Track < len(p.Sections[pos.Section].Tracks)
}

// TrackAt returns the track at pos.
func (p Playlist) TrackAt(pos Position) (Track, bool) {
	if !p.Contains(pos) {
		return Track{}, false
	}
	return p.Sections[pos.Section].Tracks[pos.Track], true
}

// First returns the first playable position (first track of the first
// non-empty section).
func (p Playlist) First() (Position, bool) {
	for i, s := range p.Sections {
		if len(s.Tracks) > 0 {
			return Position{Section: i, Track: 0}, true
		}
	}
	return Position{}, false
}

// Next returns the position following pos: the next track in the same
// section, else the first track of the immediately following section.
// An empty immediately-following section means there is no next; later
// sections are not consulted.
func (p Playlist) Next(pos Position) (Position, bool) {
	if !p.Contains(pos) {
		return Position{}, false
	}
	if pos.Track+1 < len(p.Sections[pos.Section].Tracks) {
		return Position{Section: pos.Section, Track: pos.Track + 1}, true
	}
	if pos.Section+1 < len(p.Sections) && len(p.Sections[pos.Section+1].Tracks) > 0 {
		return Position{Section: pos.Section + 1, Track: 0}, true
	}
	return Position{}, false
}

// Previous returns the position preceding pos: the prior track in the same
// section, else the last track of the immediately preceding section.
func (p Playlist) Previous(pos Position) (Position, bool) {
	if !p.Contains(pos) {
		return Position{}, false
	}
	if pos.Track > 0 {
		return Position{Section: pos.Section, Track: pos.Track - 1}, true
	}
	if pos.Section > 0 {
		prev := p.Sections[pos.Section-1]
		if len(prev.Tracks) > 0 {
			return Position{Section: pos.Section - 1, Track: len(prev.Tracks) - 1}, true
		}
	}
	return Position{}, false
}

// Clamp maps pos to the nearest valid position after an external edit.
// The section index is clamped into range first; if the clamped section has
// no tracks, earlier sections are preferred, then later ones.
func (p Playlist) Clamp(pos Position) (Position, bool) {
	if p.Contains(pos) {
		return pos, true
	}
	if len(p.Sections) == 0 {
		return Position{}, false
	}

	sec := pos.Section
	if sec < 0 {
		sec = 0
	}
	if sec >= len(p.Sections) {
		sec = len(p.Sections) - 1
	}

	if n := len(p.Sections[sec].Tracks); n > 0 {
		trk := pos.Track
		if trk < 0 {
			trk = 0
		}
		if trk >= n {
			trk = n - 1
		}
		return Position{Section: sec, Track: trk}, true
	}

	for i := sec - 1; i >= 0; i-- {
		if n := len(p.Sections[i].Tracks); n > 0 {
			return Position{Section: i, Track: n - 1}, true
		}
	}
	for i := sec + 1; i < len(p.Sections); i++ {
		if len(p.Sections[i].Tracks) > 0 {
			return Position{Section: i, Track: 0}, true
		}
	}
	return Position{}, false
}

// TrackCount returns the number of tracks across all sections.
func (p Playlist) TrackCount() int {
	var n int
	for _, s := range p.Sections {
		n += len(s.Tracks)
	}
	return n
}

// IsEmpty reports whether the playlist has no playable tracks.
func (p Playlist) IsEmpty() bool {
	return p.TrackCount() == 0
}
