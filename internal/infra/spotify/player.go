package spotify

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"
)

// endedSlack is how close to the end of a track the last observed position
// must have been for a playback stop to count as a natural end rather than
// an external pause.
const endedSlack = 2 * time.Second

type cmdKind int

const (
	cmdLoad cmdKind = iota
	cmdPlay
	cmdPause
	cmdSeek
	cmdVolume
)

type command struct {
	kind   cmdKind
	source string
	offset time.Duration
	level  float64
}

// playerSession drives one deck. The session contract requires every
// operation to be non-blocking, so commands are queued to the session's own
// goroutine, which also polls the deck's player state to keep the cached
// duration/elapsed pair fresh and to synthesize ready and ended events.
type playerSession struct {
	factory *Factory
	deck    *deck
	poll    time.Duration

	mu          sync.Mutex
	duration    time.Duration
	elapsed     time.Duration
	lastSync    time.Time
	metaKnown   bool
	playing     bool
	ready       bool
	endedFired  bool
	released    bool
	onReady     func()
	onEnded     func()
	onError     func(error)
	prevPlaying bool
	prevRemain  time.Duration

	cmdCh  chan command
	ctx    context.Context
	cancel context.CancelFunc
}

func newPlayerSession(f *Factory, d *deck, poll time.Duration) *playerSession {
	ctx, cancel := context.WithCancel(context.Background())
	s := &playerSession{
		factory: f,
		deck:    d,
		poll:    poll,
		cmdCh:   make(chan command, 16),
		ctx:     ctx,
		cancel:  cancel,
	}
	go s.run()
	return s
}

// Load queues loading the source onto the deck, paused.
func (s *playerSession) Load(source string) error {
	return s.enqueue(command{kind: cmdLoad, source: source})
}

// Play queues resuming playback.
func (s *playerSession) Play() error {
	return s.enqueue(command{kind: cmdPlay})
}

// Pause queues pausing playback.
func (s *playerSession) Pause() error {
	return s.enqueue(command{kind: cmdPause})
}

// Stop pauses the deck; Spotify Connect has no harder stop.
func (s *playerSession) Stop() error {
	return s.enqueue(command{kind: cmdPause})
}

// Seek queues a position change.
func (s *playerSession) Seek(offset time.Duration) error {
	return s.enqueue(command{kind: cmdSeek, offset: offset})
}

// SetVolume queues a volume change, level in 0..1.
func (s *playerSession) SetVolume(level float64) error {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	return s.enqueue(command{kind: cmdVolume, level: level})
}

// Duration returns the track duration once the provider reported metadata.
func (s *playerSession) Duration() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.metaKnown {
		return 0, false
	}
	return s.duration, true
}

// Elapsed returns the playback position, extrapolated between polls while
// playing.
func (s *playerSession) Elapsed() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.metaKnown {
		return 0, false
	}
	el := s.elapsed
	if s.playing {
		el += time.Since(s.lastSync)
	}
	if el > s.duration {
		el = s.duration
	}
	return el, true
}

func (s *playerSession) OnReady(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReady = fn
}

func (s *playerSession) OnEnded(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnded = fn
}

func (s *playerSession) OnError(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = fn
}

// Release stops the session loop and returns the deck to the pool
// immediately, then pauses the device best-effort so a retired session
// never stays audible. A load on a re-allocated deck supersedes the
// retiring pause, since it replaces the device's playback context anyway.
func (s *playerSession) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.mu.Unlock()

	s.cancel()
	s.factory.release(s.deck)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.deck.client.PauseOpt(ctx, s.playOpts()); err != nil {
			zlog.Debug().Msgf("spotify: deck %s: pause on release: %v", s.deck.name, err)
		}
	}()
}

func (s *playerSession) enqueue(cmd command) error {
	s.mu.Lock()
	released := s.released
	s.mu.Unlock()
	if released {
		return nil
	}
	select {
	case s.cmdCh <- cmd:
		return nil
	case <-s.ctx.Done():
		return nil
	default:
		// Queue full; the reconcile poll will catch up
		return nil
	}
}

func (s *playerSession) run() {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case cmd := <-s.cmdCh:
			s.execute(cmd)
		case <-ticker.C:
			s.pollState()
		}
	}
}

func (s *playerSession) playOpts() *spotify.PlayOptions {
	id := s.deck.deviceID
	return &spotify.PlayOptions{DeviceID: &id}
}

func (s *playerSession) execute(cmd command) {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	var err error
	switch cmd.kind {
	case cmdLoad:
		opts := s.playOpts()
		opts.URIs = []spotify.URI{trackURI(cmd.source)}
		if err = s.deck.client.PlayOpt(ctx, opts); err == nil {
			// Load means staged, not audible: pause right away and let
			// Play decide when sound starts.
			err = s.deck.client.PauseOpt(ctx, s.playOpts())
		}
		if err == nil {
			s.mu.Lock()
			s.endedFired = false
			s.ready = false
			s.metaKnown = false
			s.mu.Unlock()
		}
	case cmdPlay:
		err = s.deck.client.PlayOpt(ctx, s.playOpts())
		if err == nil {
			s.mu.Lock()
			s.playing = true
			s.lastSync = time.Now()
			s.mu.Unlock()
		}
	case cmdPause:
		err = s.deck.client.PauseOpt(ctx, s.playOpts())
		if err == nil {
			s.mu.Lock()
			if s.playing {
				s.elapsed += time.Since(s.lastSync)
			}
			s.playing = false
			s.mu.Unlock()
		}
	case cmdSeek:
		err = s.deck.client.SeekOpt(ctx, int(cmd.offset.Milliseconds()), s.playOpts())
		if err == nil {
			s.mu.Lock()
			s.elapsed = cmd.offset
			s.lastSync = time.Now()
			s.mu.Unlock()
		}
	case cmdVolume:
		err = s.deck.client.VolumeOpt(ctx, int(cmd.level*100+0.5), s.playOpts())
	}

	if err != nil {
		zlog.Debug().Msgf("spotify: deck %s: command %d failed: %v", s.deck.name, cmd.kind, err)
		s.fireError(err)
	}
}

// pollState refreshes the cached player state and synthesizes the ready and
// ended callbacks the session contract promises.
func (s *playerSession) pollState() {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	st, err := s.deck.client.PlayerState(ctx)
	if err != nil {
		s.fireError(err)
		return
	}
	if st == nil || st.Item == nil {
		return
	}

	dur := st.Item.TimeDuration()
	el := time.Duration(st.Progress) * time.Millisecond

	s.mu.Lock()
	s.duration = dur
	s.elapsed = el
	s.lastSync = time.Now()
	s.metaKnown = dur > 0

	var fireReady, fireEnded bool
	if s.metaKnown && !s.ready {
		s.ready = true
		fireReady = true
	}
	// A stop observed right after the last poll showed the track near its
	// end is a natural end; a stop from further out is an external pause.
	if s.prevPlaying && !st.Playing && !s.endedFired &&
		s.prevRemain <= s.poll*2+endedSlack {
		s.endedFired = true
		fireEnded = true
	}
	s.playing = st.Playing
	s.prevPlaying = st.Playing
	s.prevRemain = dur - el
	onReady, onEnded := s.onReady, s.onEnded
	s.mu.Unlock()

	if fireReady && onReady != nil {
		onReady()
	}
	if fireEnded && onEnded != nil {
		onEnded()
	}
}

func (s *playerSession) fireError(err error) {
	s.mu.Lock()
	fn := s.onError
	s.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}
