package api

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/LusineKarapetyan/breathflow-playlist-creator/internal/domain/playlist"
)

// trackDTO is the wire form of a track as the editor submits it. The source
// reference arrives pre-parsed; URL handling belongs to the editor.
type trackDTO struct {
	ID            string  `json:"id"`
	Source        string  `json:"source"`
	Title         string  `json:"title"`
	TransitionSec float64 `json:"transition_sec"`
}

type sectionDTO struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Tracks []trackDTO `json:"tracks"`
}

type playlistDTO struct {
	Sections []sectionDTO `json:"sections"`
}

// toDomain validates the submitted tree and converts it. Blank ids get
// generated ones so the editor can omit them for new entries.
func (d playlistDTO) toDomain() (playlist.Playlist, error) {
	pl := playlist.Playlist{Sections: make([]playlist.Section, 0, len(d.Sections))}
	for si, s := range d.Sections {
		sec := playlist.Section{
			ID:     s.ID,
			Title:  s.Title,
			Tracks: make([]playlist.Track, 0, len(s.Tracks)),
		}
		if sec.ID == "" {
			sec.ID = uuid.New().String()
		}
		for ti, t := range s.Tracks {
			if t.Source == "" {
				return playlist.Playlist{}, errors.Newf("section %d track %d: source is required", si, ti)
			}
			if t.TransitionSec < 0 {
				return playlist.Playlist{}, errors.Newf("section %d track %d: transition must be non-negative", si, ti)
			}
			id := t.ID
			if id == "" {
				id = uuid.New().String()
			}
			sec.Tracks = append(sec.Tracks, playlist.Track{
				ID:         id,
				Source:     t.Source,
				Title:      t.Title,
				Transition: time.Duration(t.TransitionSec * float64(time.Second)),
			})
		}
		pl.Sections = append(pl.Sections, sec)
	}
	return pl, nil
}
