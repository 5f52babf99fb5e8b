package playlist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func listWith(sections ...Section) Playlist {
	return Playlist{Sections: sections}
}

func tracks(n int) []Track {
	out := make([]Track, n)
	for i := range out {
		out[i] = Track{ID: string(rune('a' + i)), Source: "src", Transition: time.Second}
	}
	return out
}

func TestPlaylist_Next(t *testing.T) {
	tests := []struct {
		name     string
		list     Playlist
		pos      Position
		expected Position
		ok       bool
	}{
		{
			name:     "next track in same section",
			list:     listWith(Section{Tracks: tracks(3)}),
			pos:      Position{Section: 0, Track: 0},
			expected: Position{Section: 0, Track: 1},
			ok:       true,
		},
		{
			name:     "first track of following section",
			list:     listWith(Section{Tracks: tracks(2)}, Section{Tracks: tracks(1)}),
			pos:      Position{Section: 0, Track: 1},
			expected: Position{Section: 1, Track: 0},
			ok:       true,
		},
		{
			name: "empty following section reports no next",
			list: listWith(Section{Tracks: tracks(1)}, Section{}, Section{Tracks: tracks(1)}),
			pos:  Position{Section: 0, Track: 0},
			ok:   false,
		},
		{
			name: "last track of last section",
			list: listWith(Section{Tracks: tracks(2)}),
			pos:  Position{Section: 0, Track: 1},
			ok:   false,
		},
		{
			name: "invalid position",
			list: listWith(Section{Tracks: tracks(2)}),
			pos:  Position{Section: 5, Track: 0},
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.list.Next(tt.pos)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestPlaylist_Previous(t *testing.T) {
	tests := []struct {
		name     string
		list     Playlist
		pos      Position
		expected Position
		ok       bool
	}{
		{
			name:     "previous track in same section",
			list:     listWith(Section{Tracks: tracks(3)}),
			pos:      Position{Section: 0, Track: 2},
			expected: Position{Section: 0, Track: 1},
			ok:       true,
		},
		{
			name:     "last track of preceding section",
			list:     listWith(Section{Tracks: tracks(3)}, Section{Tracks: tracks(1)}),
			pos:      Position{Section: 1, Track: 0},
			expected: Position{Section: 0, Track: 2},
			ok:       true,
		},
		{
			name: "first track of first section",
			list: listWith(Section{Tracks: tracks(2)}),
			pos:  Position{Section: 0, Track: 0},
			ok:   false,
		},
		{
			name: "empty preceding section reports no previous",
			list: listWith(Section{}, Section{Tracks: tracks(1)}),
			pos:  Position{Section: 1, Track: 0},
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.list.Previous(tt.pos)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

// next then previous must land back where it started whenever both
// neighbors exist.
func TestPlaylist_NextPreviousRoundTrip(t *testing.T) {
	list := listWith(
		Section{Tracks: tracks(2)},
		Section{Tracks: tracks(3)},
		Section{Tracks: tracks(1)},
	)

	for si := range list.Sections {
		for ti := range list.Sections[si].Tracks {
			pos := Position{Section: si, Track: ti}
			next, ok := list.Next(pos)
			if !ok {
				continue
			}
			back, ok := list.Previous(next)
			assert.True(t, ok)
			assert.Equal(t, pos, back, "round trip from %+v", pos)
		}
	}
}

func TestPlaylist_Clamp(t *testing.T) {
	tests := []struct {
		name     string
		list     Playlist
		pos      Position
		expected Position
		ok       bool
	}{
		{
			name:     "valid position unchanged",
			list:     listWith(Section{Tracks: tracks(2)}),
			pos:      Position{Section: 0, Track: 1},
			expected: Position{Section: 0, Track: 1},
			ok:       true,
		},
		{
			name:     "track index clamped to section end",
			list:     listWith(Section{Tracks: tracks(2)}),
			pos:      Position{Section: 0, Track: 7},
			expected: Position{Section: 0, Track: 1},
			ok:       true,
		},
		{
			name:     "section index clamped to last section",
			list:     listWith(Section{Tracks: tracks(1)}, Section{Tracks: tracks(2)}),
			pos:      Position{Section: 9, Track: 9},
			expected: Position{Section: 1, Track: 1},
			ok:       true,
		},
		{
			name:     "empty clamped section falls back to earlier one",
			list:     listWith(Section{Tracks: tracks(2)}, Section{}),
			pos:      Position{Section: 1, Track: 0},
			expected: Position{Section: 0, Track: 1},
			ok:       true,
		},
		{
			name:     "empty clamped section falls forward when nothing earlier",
			list:     listWith(Section{}, Section{Tracks: tracks(1)}),
			pos:      Position{Section: 0, Track: 0},
			expected: Position{Section: 1, Track: 0},
			ok:       true,
		},
		{
			name: "no playable track at all",
			list: listWith(Section{}, Section{}),
			pos:  Position{Section: 0, Track: 0},
			ok:   false,
		},
		{
			name: "empty playlist",
			list: Playlist{},
			pos:  Position{Section: 0, Track: 0},
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.list.Clamp(tt.pos)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestPlaylist_First(t *testing.T) {
	pos, ok := listWith(Section{}, Section{Tracks: tracks(2)}).First()
	assert.True(t, ok)
	assert.Equal(t, Position{Section: 1, Track: 0}, pos)

	_, ok = listWith(Section{}).First()
	assert.False(t, ok)
}

func TestPlaylist_Counts(t *testing.T) {
	list := listWith(Section{Tracks: tracks(2)}, Section{}, Section{Tracks: tracks(1)})
	assert.Equal(t, 3, list.TrackCount())
	assert.False(t, list.IsEmpty())
	assert.True(t, Playlist{}.IsEmpty())
}
