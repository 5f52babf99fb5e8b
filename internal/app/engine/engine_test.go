package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LusineKarapetyan/breathflow-playlist-creator/internal/domain/playlist"
)

// testConfig keeps every background timer out of the way so tests drive the
// engine by hand; individual tests override what they exercise.
func testConfig() Config {
	return Config{
		PollInterval:      time.Hour,
		StageReadyTimeout: time.Hour,
		MinFadeStep:       5 * time.Millisecond,
		FadeSteps:         10,
		AutoAdvance:       true,
	}
}

func newTestEngine(t *testing.T, cfg Config, list playlist.Playlist) (*Engine, *fakeFactory) {
	t.Helper()
	f := &fakeFactory{}
	e := New(cfg, f, nil)
	e.SetPlaylist(list)
	t.Cleanup(e.Close)
	return e, f
}

// twoTracks builds one section with two tracks; the second track carries the
// given crossfade lead.
func twoTracks(lead time.Duration) playlist.Playlist {
	return playlist.Playlist{Sections: []playlist.Section{{
		ID:    "s1",
		Title: "Warmup",
		Tracks: []playlist.Track{
			{ID: "t1", Source: "source-one", Title: "One"},
			{ID: "t2", Source: "source-two", Title: "Two", Transition: lead},
		},
	}}}
}

func pos(section, track int) playlist.Position {
	return playlist.Position{Section: section, Track: track}
}

func TestSelectTrack(t *testing.T) {
	e, f := newTestEngine(t, testConfig(), twoTracks(0))

	require.NoError(t, e.SelectTrack(pos(0, 1)))

	snap := e.Snapshot()
	require.NotNil(t, snap.Position)
	assert.Equal(t, pos(0, 1), *snap.Position)
	assert.True(t, snap.IsPlaying)
	assert.Equal(t, "Two", snap.TrackTitle)

	require.Equal(t, 1, f.created())
	assert.Equal(t, "source-two", f.session(0).loadedSource())
	assert.True(t, f.session(0).isPlaying())
}

func TestSelectTrack_InvalidPosition(t *testing.T) {
	e, f := newTestEngine(t, testConfig(), twoTracks(0))

	assert.ErrorIs(t, e.SelectTrack(pos(0, 5)), ErrInvalidPosition)
	assert.ErrorIs(t, e.SelectTrack(pos(3, 0)), ErrInvalidPosition)
	assert.Equal(t, 0, f.created())
	assert.Equal(t, StateIdle.String(), e.Snapshot().State)
}

func TestSelectTrack_EmptySectionRejected(t *testing.T) {
	list := playlist.Playlist{Sections: []playlist.Section{
		{ID: "s1", Tracks: []playlist.Track{{ID: "t1", Source: "src"}}},
		{ID: "s2"}, // no tracks
	}}
	e, _ := newTestEngine(t, testConfig(), list)

	assert.ErrorIs(t, e.SelectTrack(pos(1, 0)), ErrInvalidPosition)
}

// Toggling twice returns isPlaying to its original value and never moves
// the position.
func TestTogglePlayPause_RoundTrip(t *testing.T) {
	e, f := newTestEngine(t, testConfig(), twoTracks(0))
	require.NoError(t, e.SelectTrack(pos(0, 0)))

	require.NoError(t, e.TogglePlayPause())
	snap := e.Snapshot()
	assert.False(t, snap.IsPlaying)
	assert.Equal(t, pos(0, 0), *snap.Position)
	assert.False(t, f.session(0).isPlaying())

	require.NoError(t, e.TogglePlayPause())
	snap = e.Snapshot()
	assert.True(t, snap.IsPlaying)
	assert.Equal(t, pos(0, 0), *snap.Position)
	assert.True(t, f.session(0).isPlaying())
}

func TestTogglePlayPause_NoTrack(t *testing.T) {
	e, _ := newTestEngine(t, testConfig(), twoTracks(0))
	assert.ErrorIs(t, e.TogglePlayPause(), ErrNoTrack)
}

func TestNextPrevious(t *testing.T) {
	e, _ := newTestEngine(t, testConfig(), twoTracks(0))
	require.NoError(t, e.SelectTrack(pos(0, 0)))

	require.NoError(t, e.Next())
	assert.Equal(t, pos(0, 1), *e.Snapshot().Position)

	require.NoError(t, e.Previous())
	assert.Equal(t, pos(0, 0), *e.Snapshot().Position)

	assert.ErrorIs(t, e.Previous(), ErrNoPrevious)
}

// Skip forward must be reported unavailable on the last track.
func TestNext_AtEndOfPlaylist(t *testing.T) {
	e, _ := newTestEngine(t, testConfig(), twoTracks(0))
	require.NoError(t, e.SelectTrack(pos(0, 1)))

	assert.False(t, e.Snapshot().HasNext)
	assert.ErrorIs(t, e.Next(), ErrNoNext)
	assert.Equal(t, pos(0, 1), *e.Snapshot().Position)
}

func TestNaturalEnd_Advances(t *testing.T) {
	e, f := newTestEngine(t, testConfig(), twoTracks(0))
	require.NoError(t, e.SelectTrack(pos(0, 0)))

	f.session(0).fireEnded()

	snap := e.Snapshot()
	assert.Equal(t, pos(0, 1), *snap.Position)
	assert.True(t, snap.IsPlaying)
	assert.True(t, f.session(0).isReleased())
	assert.Equal(t, 1, f.liveCount())
	assert.Equal(t, "source-two", f.session(1).loadedSource())
}

// Single-track playlist: at natural end playback stops in place.
func TestNaturalEnd_NoNextStops(t *testing.T) {
	list := playlist.Playlist{Sections: []playlist.Section{{
		ID:     "s1",
		Tracks: []playlist.Track{{ID: "t1", Source: "only"}},
	}}}
	e, f := newTestEngine(t, testConfig(), list)
	require.NoError(t, e.SelectTrack(pos(0, 0)))

	f.session(0).fireEnded()

	snap := e.Snapshot()
	assert.False(t, snap.IsPlaying)
	assert.Equal(t, pos(0, 0), *snap.Position)
	assert.Equal(t, 1, f.liveCount())
}

func TestNaturalEnd_AutoAdvanceOff(t *testing.T) {
	e, f := newTestEngine(t, testConfig(), twoTracks(0))
	require.NoError(t, e.SelectTrack(pos(0, 0)))
	e.SetAutoAdvance(false)

	f.session(0).fireEnded()

	snap := e.Snapshot()
	assert.False(t, snap.IsPlaying)
	assert.Equal(t, pos(0, 0), *snap.Position)
	assert.Equal(t, 1, f.created())
}

// An ended event from a retired session must not advance the new track.
func TestNaturalEnd_StaleEventIgnored(t *testing.T) {
	e, f := newTestEngine(t, testConfig(), twoTracks(0))
	require.NoError(t, e.SelectTrack(pos(0, 0)))
	old := f.session(0)

	require.NoError(t, e.SelectTrack(pos(0, 1)))
	old.fireEnded()

	assert.Equal(t, pos(0, 1), *e.Snapshot().Position)
	assert.True(t, e.Snapshot().IsPlaying)
}

func TestSeek(t *testing.T) {
	e, f := newTestEngine(t, testConfig(), twoTracks(0))
	require.NoError(t, e.SelectTrack(pos(0, 0)))

	require.NoError(t, e.Seek(42*time.Second))
	assert.Equal(t, 42*time.Second, f.session(0).seekedTo)
	assert.InDelta(t, 42.0, e.Snapshot().ElapsedSec, 0.001)
}

func TestSetPlaylist_ClampsRemovedPosition(t *testing.T) {
	e, _ := newTestEngine(t, testConfig(), twoTracks(0))
	require.NoError(t, e.SelectTrack(pos(0, 1)))

	// Edit removes the second track while it is current
	shrunk := playlist.Playlist{Sections: []playlist.Section{{
		ID:     "s1",
		Tracks: []playlist.Track{{ID: "t1", Source: "source-one", Title: "One"}},
	}}}
	e.SetPlaylist(shrunk)

	snap := e.Snapshot()
	require.NotNil(t, snap.Position)
	assert.Equal(t, pos(0, 0), *snap.Position)
	assert.True(t, snap.IsPlaying)
}

func TestSetPlaylist_AllTracksRemoved(t *testing.T) {
	e, f := newTestEngine(t, testConfig(), twoTracks(0))
	require.NoError(t, e.SelectTrack(pos(0, 0)))

	e.SetPlaylist(playlist.Playlist{})

	snap := e.Snapshot()
	assert.Equal(t, StateIdle.String(), snap.State)
	assert.Nil(t, snap.Position)
	assert.Equal(t, 0, f.liveCount())
}

func TestClose_ReleasesSessions(t *testing.T) {
	f := &fakeFactory{}
	e := New(testConfig(), f, nil)
	e.SetPlaylist(twoTracks(0))
	require.NoError(t, e.SelectTrack(pos(0, 0)))

	e.Close()
	assert.Equal(t, 0, f.liveCount())

	// Closing twice must be safe
	e.Close()
	assert.ErrorIs(t, e.SelectTrack(pos(0, 0)), ErrClosed)
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		in       time.Duration
		expected string
	}{
		{0, "0:00"},
		{7 * time.Second, "0:07"},
		{65 * time.Second, "1:05"},
		{10 * time.Minute, "10:00"},
		{-3 * time.Second, "0:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatClock(tt.in))
	}
}
