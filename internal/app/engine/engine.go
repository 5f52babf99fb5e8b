package engine

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/LusineKarapetyan/breathflow-playlist-creator/internal/app/session"
	"github.com/LusineKarapetyan/breathflow-playlist-creator/internal/domain/playlist"
)

// Errors
var (
	ErrNoTrack         = errors.New("no track loaded")
	ErrInvalidPosition = errors.New("position out of range")
	ErrNoNext          = errors.New("no next track")
	ErrNoPrevious      = errors.New("no previous track")
	ErrClosed          = errors.New("engine closed")
)

// Config holds engine configuration.
type Config struct {
	PollInterval      time.Duration // Progress poll tick interval
	StageReadyTimeout time.Duration // Bounded wait for a staging session to report ready
	MinFadeStep       time.Duration // Minimum interval between fade volume updates
	FadeSteps         int           // Target number of fade steps for a full-length fade
	AutoAdvance       bool          // Initial auto-advance setting
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	if c.StageReadyTimeout <= 0 {
		c.StageReadyTimeout = 3 * time.Second
	}
	if c.MinFadeStep <= 0 {
		c.MinFadeStep = 50 * time.Millisecond
	}
	if c.FadeSteps <= 0 {
		c.FadeSteps = 40
	}
}

// Engine is the playback transition engine. Every read-modify-write of its
// state, whether from a user command, a poll tick or a provider callback,
// goes through the single mutex.
type Engine struct {
	mu sync.Mutex

	cfg     Config
	factory session.Factory
	gate    *session.Gate
	slots   *session.Slots

	list     playlist.Playlist
	pos      playlist.Position
	hasTrack bool
	playing  bool
	advance  bool

	// Last observed progress of the active session. Meaningless right
	// after a position change until the session reports duration.
	elapsed  time.Duration
	duration time.Duration

	trans    *transition
	transSeq uint64

	// gen stamps every active-session callback registration; callbacks
	// carrying a stale generation are dropped.
	gen uint64

	eventCh chan Event
	ctx     context.Context
	cancel  context.CancelFunc
	closed  bool
}

// New creates a new engine. The gate may be nil in tests; a non-nil gate is
// acquired for the engine's lifetime and released on Close.
func New(cfg Config, factory session.Factory, gate *session.Gate) *Engine {
	cfg.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:     cfg,
		factory: factory,
		gate:    gate,
		slots:   &session.Slots{},
		advance: cfg.AutoAdvance,
		eventCh: make(chan Event, 16),
		ctx:     ctx,
		cancel:  cancel,
	}
	if gate != nil {
		gate.Acquire()
	}
	return e
}

// Start launches the progress poll loop. A single loop feeds both the
// progress snapshot and the transition trigger so every tick sees one
// consistent duration/elapsed pair.
func (e *Engine) Start() {
	go func() {
		ticker := time.NewTicker(e.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-e.ctx.Done():
				return
			case <-ticker.C:
				e.tick()
			}
		}
	}()
}

// Events returns the event channel.
func (e *Engine) Events() <-chan Event {
	return e.eventCh
}

// SetPlaylist swaps in a new playlist value. The current position is
// revalidated: if it survived the edit playback continues untouched, if it
// moved the engine clamps to the nearest valid position, and if nothing is
// playable the engine goes idle.
func (e *Engine) SetPlaylist(pl playlist.Playlist) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.list = pl
	if !e.hasTrack {
		return
	}

	if e.trans != nil && !pl.Contains(e.trans.target) {
		e.abandonTransitionLocked("transition target removed by edit")
	}

	if pl.Contains(e.pos) {
		return
	}

	clamped, ok := pl.Clamp(e.pos)
	if !ok {
		zlog.Info().Msg("engine: playlist edit removed all tracks, stopping")
		e.stopLocked()
		return
	}

	zlog.Info().Msgf("engine: position invalidated by edit, moving to %d/%d", clamped.Section, clamped.Track)
	e.abandonTransitionLocked("position invalidated by edit")
	if err := e.loadTrackLocked(clamped); err != nil {
		zlog.Warn().Msgf("engine: failed to load clamped position: %v", err)
		e.stopLocked()
	}
}

// SelectTrack jumps to an arbitrary position and starts playing it.
func (e *Engine) SelectTrack(pos playlist.Position) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if !e.list.Contains(pos) {
		return errors.Wrapf(ErrInvalidPosition, "section=%d track=%d", pos.Section, pos.Track)
	}

	e.abandonTransitionLocked("track selected")
	return e.loadTrackLocked(pos)
}

// TogglePlayPause flips the playing flag and propagates it to whichever
// sessions are live. A pending (not yet started) crossfade is abandoned on
// pause; a started fade freezes and resumes with playback.
func (e *Engine) TogglePlayPause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.hasTrack {
		return ErrNoTrack
	}

	e.playing = !e.playing

	if e.trans != nil && !e.trans.started && !e.playing {
		e.abandonTransitionLocked("paused before fade start")
	}

	active := e.slots.Active()
	staging := e.slots.Staging()
	if e.playing {
		if active != nil {
			e.logSessionErr("play", active.Play())
		}
		if staging != nil {
			e.logSessionErr("play staging", staging.Play())
		}
	} else {
		if active != nil {
			e.logSessionErr("pause", active.Pause())
		}
		if staging != nil {
			e.logSessionErr("pause staging", staging.Pause())
		}
	}

	e.sendEventLocked(Event{Type: EventStateChanged, Position: e.pos, State: e.stateLocked()})
	return nil
}

// Next skips to the adjacent next track, cancelling any in-flight
// transition first.
func (e *Engine) Next() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.hasTrack {
		return ErrNoTrack
	}
	next, ok := e.list.Next(e.pos)
	if !ok {
		return ErrNoNext
	}

	e.abandonTransitionLocked("skip forward")
	return e.loadTrackLocked(next)
}

// Previous skips to the adjacent previous track, cancelling any in-flight
// transition first.
func (e *Engine) Previous() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.hasTrack {
		return ErrNoTrack
	}
	prev, ok := e.list.Previous(e.pos)
	if !ok {
		return ErrNoPrevious
	}

	e.abandonTransitionLocked("skip backward")
	return e.loadTrackLocked(prev)
}

// Seek moves the active session to the given offset. A pending transition is
// abandoned because its timing no longer holds; a started fade is forced to
// completion first so the seek lands on a single audible session.
func (e *Engine) Seek(offset time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.hasTrack {
		return ErrNoTrack
	}
	if offset < 0 {
		offset = 0
	}

	if e.trans != nil {
		if e.trans.started {
			e.finalizeTransitionLocked()
		} else {
			e.abandonTransitionLocked("seek invalidated pending fade")
		}
	}

	active := e.slots.Active()
	if active == nil {
		return ErrNoTrack
	}
	if err := active.Seek(offset); err != nil {
		return errors.Wrap(err, "seek failed")
	}
	e.elapsed = offset
	return nil
}

// SetAutoAdvance toggles chaining to the next track. Turning it off
// abandons a pending fade; a started fade still completes.
func (e *Engine) SetAutoAdvance(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.advance == on {
		return
	}
	e.advance = on

	if !on && e.trans != nil && !e.trans.started {
		e.abandonTransitionLocked("auto-advance disabled")
	}
	e.sendEventLocked(Event{Type: EventStateChanged, Position: e.pos, State: e.stateLocked()})
}

// Snapshot returns the current UI-facing view of the engine.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		State:       e.stateLocked().String(),
		IsPlaying:   e.playing && e.hasTrack,
		AutoAdvance: e.advance,
	}
	if e.gate != nil {
		snap.Degraded = e.gate.Degraded()
	}
	if !e.hasTrack {
		return snap
	}

	pos := e.pos
	snap.Position = &pos
	if t, ok := e.list.TrackAt(e.pos); ok {
		snap.TrackTitle = t.Title
	}
	snap.ElapsedSec = e.elapsed.Seconds()
	snap.DurationSec = e.duration.Seconds()
	snap.Elapsed = formatClock(e.elapsed)
	snap.Duration = formatClock(e.duration)
	_, snap.HasNext = e.list.Next(e.pos)
	_, snap.HasPrevious = e.list.Previous(e.pos)
	if e.trans != nil {
		snap.Transitioning = true
		snap.FadeProgress = e.trans.progress
	}
	return snap
}

// Close shuts the engine down: the poll loop stops, both sessions are
// released and the provider gate reference is dropped.
func (e *Engine) Close() {
	e.cancel()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.abandonTransitionLocked("engine closed")
	for _, s := range e.slots.Clear() {
		e.logSessionErr("stop", s.Stop())
		s.Release()
	}
	e.hasTrack = false
	e.playing = false
	e.mu.Unlock()

	if e.gate != nil {
		e.gate.Release()
	}
	close(e.eventCh)
}

// loadTrackLocked makes pos current: the old active session is retired and a
// fresh session is created, loaded and played. Must be called with the lock
// held and no transition in flight.
func (e *Engine) loadTrackLocked(pos playlist.Position) error {
	t, ok := e.list.TrackAt(pos)
	if !ok {
		return errors.Wrapf(ErrInvalidPosition, "section=%d track=%d", pos.Section, pos.Track)
	}

	sess, err := e.factory.NewSession()
	if err != nil {
		return errors.Wrap(err, "failed to create session")
	}

	if prev := e.slots.SetActive(sess); prev != nil {
		e.logSessionErr("stop retired", prev.Stop())
		prev.Release()
	}

	e.gen++
	gen := e.gen
	sess.OnEnded(func() { e.onSessionEnded(gen) })
	sess.OnError(func(err error) {
		zlog.Warn().Msgf("engine: session error: %v", err)
	})

	e.logSessionErr("load", sess.Load(t.Source))
	e.logSessionErr("set volume", sess.SetVolume(1))

	e.pos = pos
	e.hasTrack = true
	e.playing = true
	e.elapsed = 0
	e.duration = 0

	e.logSessionErr("play", sess.Play())

	zlog.Debug().Msgf("engine: loaded track: section=%d track=%d title=%q", pos.Section, pos.Track, t.Title)
	e.sendEventLocked(Event{Type: EventTrackChanged, Position: pos, State: e.stateLocked()})
	return nil
}

// stopLocked releases all sessions and parks the engine in Idle.
func (e *Engine) stopLocked() {
	e.abandonTransitionLocked("stopped")
	for _, s := range e.slots.Clear() {
		e.logSessionErr("stop", s.Stop())
		s.Release()
	}
	e.hasTrack = false
	e.playing = false
	e.elapsed = 0
	e.duration = 0
	e.sendEventLocked(Event{Type: EventStateChanged, State: StateIdle})
}

// onSessionEnded handles the provider's natural-end callback. The generation
// stamp drops duplicate or late ended events from retired sessions.
func (e *Engine) onSessionEnded(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.gen {
		zlog.Debug().Msgf("engine: dropping stale ended event: gen=%d current=%d", gen, e.gen)
		return
	}
	e.naturalEndLocked()
}

// naturalEndLocked applies the end-of-media rules: a transition in flight is
// force-finalized; otherwise the engine advances when auto-advance allows
// and a next track exists, and stops in place when it does not.
func (e *Engine) naturalEndLocked() {
	if !e.hasTrack {
		return
	}

	if e.trans != nil {
		zlog.Debug().Msg("engine: active ended mid-transition, forcing finalize")
		e.finalizeTransitionLocked()
		return
	}

	if !e.advance {
		e.playing = false
		if active := e.slots.Active(); active != nil {
			e.logSessionErr("pause", active.Pause())
		}
		e.sendEventLocked(Event{Type: EventStateChanged, Position: e.pos, State: e.stateLocked()})
		return
	}

	next, ok := e.list.Next(e.pos)
	if !ok {
		e.playing = false
		e.sendEventLocked(Event{Type: EventPlaylistEnded, Position: e.pos, State: e.stateLocked()})
		return
	}
	if err := e.loadTrackLocked(next); err != nil {
		zlog.Warn().Msgf("engine: failed to advance at natural end: %v", err)
		e.playing = false
	}
}

func (e *Engine) stateLocked() State {
	switch {
	case !e.hasTrack:
		return StateIdle
	case e.trans != nil:
		return StateTransitioning
	case e.playing:
		return StatePlaying
	default:
		return StatePaused
	}
}

// sendEventLocked sends an event without blocking. Must be called with the
// lock held.
func (e *Engine) sendEventLocked(ev Event) {
	if e.closed {
		return
	}
	select {
	case e.eventCh <- ev:
	case <-e.ctx.Done():
	default:
		// Channel full, drop event
	}
}

func (e *Engine) logSessionErr(op string, err error) {
	if err != nil {
		zlog.Debug().Msgf("engine: session %s: %v", op, err)
	}
}
