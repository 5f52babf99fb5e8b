package engine

import (
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/LusineKarapetyan/breathflow-playlist-creator/internal/domain/playlist"
)

// transition is the record of a crossfade in flight. The staging session
// itself lives in the slot registry; this struct carries the schedule.
type transition struct {
	seq      uint64
	target   playlist.Position
	lead     time.Duration
	progress float64
	started  bool

	timeoutCancel func()
	fadeCancel    func()
}

// tick is the periodic progress check. It refreshes the observed
// elapsed/duration pair and, when the remaining time of the active track
// drops inside the next track's lead window, begins a crossfade.
func (e *Engine) tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || !e.hasTrack {
		return
	}
	active := e.slots.Active()
	if active == nil {
		return
	}

	dur, durOK := active.Duration()
	el, elOK := active.Elapsed()
	if durOK {
		e.duration = dur
	}
	if elOK {
		e.elapsed = el
	}

	if !e.playing || !e.advance || e.trans != nil {
		return
	}
	if e.gate != nil && !e.gate.Ready() {
		// Provider not confirmed (or degraded): no crossfades
		return
	}
	if !durOK || !elOK || dur <= 0 {
		// Session not ready, try again next tick
		return
	}

	remaining := dur - el
	next, ok := e.list.Next(e.pos)
	if !ok {
		return
	}
	nt, ok := e.list.TrackAt(next)
	if !ok {
		return
	}
	// The incoming track's lead time governs both when the fade starts
	// and how long it runs. Zero lead means no fade at all: the track
	// plays to natural end and advances there.
	if nt.Transition <= 0 {
		return
	}
	if remaining <= 0 || remaining > nt.Transition {
		return
	}

	e.beginTransitionLocked(next, nt.Source, nt.Transition)
}

// beginTransitionLocked creates the staging session for the upcoming track
// and arms the bounded ready wait. The fade itself starts only once the
// staging session reports ready.
func (e *Engine) beginTransitionLocked(target playlist.Position, source string, lead time.Duration) {
	staging, err := e.factory.NewSession()
	if err != nil {
		zlog.Warn().Msgf("engine: cannot stage next track: %v", err)
		return
	}

	e.transSeq++
	tr := &transition{seq: e.transSeq, target: target, lead: lead}
	seq := tr.seq

	staging.OnReady(func() { e.onStagingReady(seq) })
	staging.OnError(func(err error) {
		zlog.Warn().Msgf("engine: staging session error: %v", err)
	})

	if prev := e.slots.Stage(staging); prev != nil {
		// Slot invariant: at most one staging session
		e.logSessionErr("stop displaced staging", prev.Stop())
		prev.Release()
	}

	e.logSessionErr("load staging", staging.Load(source))
	e.logSessionErr("mute staging", staging.SetVolume(0))

	timeout := time.AfterFunc(e.cfg.StageReadyTimeout, func() { e.onStageTimeout(seq) })
	tr.timeoutCancel = func() { timeout.Stop() }

	e.trans = tr
	zlog.Debug().Msgf("engine: transition staged: target=%d/%d lead=%v", target.Section, target.Track, lead)
	e.sendEventLocked(Event{
		Type:     EventTransitionStarted,
		Position: e.pos,
		State:    e.stateLocked(),
	})
}

// onStagingReady starts the fade once the staging session is playable.
// Late or duplicate ready callbacks for a superseded transition are dropped.
func (e *Engine) onStagingReady(seq uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tr := e.trans
	if tr == nil || tr.seq != seq || tr.started {
		return
	}
	if tr.timeoutCancel != nil {
		tr.timeoutCancel()
		tr.timeoutCancel = nil
	}
	e.startFadeLocked(tr)
}

// onStageTimeout abandons a transition whose staging session never became
// ready within the bounded wait; playback falls back to the natural-end
// advance path.
func (e *Engine) onStageTimeout(seq uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tr := e.trans
	if tr == nil || tr.seq != seq || tr.started {
		return
	}
	zlog.Warn().Msgf("engine: staging session not ready after %v, abandoning transition", e.cfg.StageReadyTimeout)
	e.abandonTransitionLocked("staging ready timeout")
}

// startFadeLocked begins the volume ramp. Step count is proportional to the
// fade duration with a minimum step interval so updates are not starved.
func (e *Engine) startFadeLocked(tr *transition) {
	tr.started = true

	staging := e.slots.Staging()
	if staging == nil {
		// Lost the session between staging and ready; give up
		e.trans = nil
		return
	}
	e.logSessionErr("play staging", staging.Play())

	interval := tr.lead / time.Duration(e.cfg.FadeSteps)
	if interval < e.cfg.MinFadeStep {
		interval = e.cfg.MinFadeStep
	}
	steps := int(tr.lead / interval)
	if steps < 1 {
		steps = 1
	}
	delta := 1.0 / float64(steps)

	done := make(chan struct{})
	tr.fadeCancel = func() {
		select {
		case <-done:
		default:
			close(done)
		}
	}
	seq := tr.seq

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-e.ctx.Done():
				return
			case <-ticker.C:
				if e.fadeStep(seq, delta) {
					return
				}
			}
		}
	}()

	zlog.Debug().Msgf("engine: fade started: lead=%v interval=%v steps=%d", tr.lead, interval, steps)
}

// fadeStep advances the fade by one increment and reports whether the fade
// is over. The ramp is linear: active volume 1..0, staging 0..1.
func (e *Engine) fadeStep(seq uint64, delta float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	tr := e.trans
	if tr == nil || tr.seq != seq || !tr.started {
		return true
	}
	if !e.playing {
		// Fade freezes while paused and resumes with playback
		return false
	}

	tr.progress += delta
	if tr.progress > 1 {
		tr.progress = 1
	}

	if active := e.slots.Active(); active != nil {
		e.logSessionErr("fade active volume", active.SetVolume(1-tr.progress))
	}
	if staging := e.slots.Staging(); staging != nil {
		e.logSessionErr("fade staging volume", staging.SetVolume(tr.progress))
	}

	if tr.progress >= 1 {
		e.finalizeTransitionLocked()
		return true
	}
	return false
}

// abandonTransitionLocked tears down an in-flight transition without
// swapping: timers stop, the staging session is released and the active
// session gets its volume back. Safe to call with no transition in flight.
func (e *Engine) abandonTransitionLocked(reason string) {
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

	if staging := e.slots.DropStaging(); staging != nil {
		e.logSessionErr("stop staging", staging.Stop())
		staging.Release()
	}
	if tr.started {
		if active := e.slots.Active(); active != nil {
			e.logSessionErr("restore volume", active.SetVolume(1))
		}
	}

	e.trans = nil
	zlog.Debug().Msgf("engine: transition abandoned: %s", reason)
	e.sendEventLocked(Event{Type: EventTransitionAborted, Position: e.pos, State: e.stateLocked()})
}
