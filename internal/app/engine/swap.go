package engine

import (
	zlog "github.com/rs/zerolog/log"
)

// finalizeTransitionLocked atomically promotes the staging session to
// active, whether the fade ran to completion or the outgoing track hit its
// natural end first. On return exactly one session is live and audible and
// it matches the recorded position.
//
// The routine is idempotent: a duplicate invocation (late fade tick, doubled
// ended event) finds no staging session and does nothing beyond clearing the
// transition record.
func (e *Engine) finalizeTransitionLocked() {
	tr := e.trans
	if tr == nil {
		return
	}
	if tr.timeoutCancel != nil {
		tr.timeoutCancel()
	}
	if tr.fadeCancel != nil {
		tr.fadeCancel()
	}
	e.trans = nil

	if e.slots.Staging() == nil {
		return
	}

	// 1. Retire the outgoing active session.
	retired := e.slots.Promote()
	if retired != nil {
		e.logSessionErr("stop retired", retired.Stop())
		retired.Release()
	}

	// 2. The promoted session becomes authoritative: full volume, playing,
	// and wired to the natural-end path under a fresh generation so any
	// late event from the retired session is dropped.
	promoted := e.slots.Active()
	e.gen++
	gen := e.gen
	promoted.OnEnded(func() { e.onSessionEnded(gen) })
	promoted.OnError(func(err error) {
		zlog.Warn().Msgf("engine: session error: %v", err)
	})
	e.logSessionErr("restore volume", promoted.SetVolume(1))
	e.logSessionErr("play promoted", promoted.Play())

	// 3. Playback state follows the transition target. Elapsed time carries
	// over from the staging session, which has been playing through the
	// fade already.
	e.pos = tr.target
	e.playing = true
	if el, ok := promoted.Elapsed(); ok {
		e.elapsed = el
	} else {
		e.elapsed = 0
	}
	if dur, ok := promoted.Duration(); ok {
		e.duration = dur
	} else {
		e.duration = 0
	}

	zlog.Debug().Msgf("engine: transition finalized: now at %d/%d", e.pos.Section, e.pos.Track)
	e.sendEventLocked(Event{Type: EventTransitionFinished, Position: e.pos, State: e.stateLocked()})
	e.sendEventLocked(Event{Type: EventTrackChanged, Position: e.pos, State: e.stateLocked()})
}
