package engine

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/LusineKarapetyan/breathflow-playlist-creator/internal/app/session"
)

// fakeSession is a scripted media session. Tests drive readiness, progress
// and natural end by hand, which keeps the engine's timing deterministic.
type fakeSession struct {
	mu        sync.Mutex
	source    string
	playing   bool
	released  bool
	volume    float64
	seekedTo  time.Duration
	duration  time.Duration
	elapsed   time.Duration
	metaKnown bool

	onReady func()
	onEnded func()
	onError func(error)
}

func (f *fakeSession) Load(source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.source = source
	return nil
}

func (f *fakeSession) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = true
	return nil
}

func (f *fakeSession) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
	return nil
}

func (f *fakeSession) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
	return nil
}

func (f *fakeSession) Seek(offset time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seekedTo = offset
	f.elapsed = offset
	return nil
}

func (f *fakeSession) SetVolume(level float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = level
	return nil
}

func (f *fakeSession) Duration() (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duration, f.metaKnown
}

func (f *fakeSession) Elapsed() (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.elapsed, f.metaKnown
}

func (f *fakeSession) OnReady(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onReady = fn
}

func (f *fakeSession) OnEnded(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onEnded = fn
}

func (f *fakeSession) OnError(fn func(error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onError = fn
}

func (f *fakeSession) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = true
}

// setProgress scripts the provider-reported metadata.
func (f *fakeSession) setProgress(duration, elapsed time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.duration = duration
	f.elapsed = elapsed
	f.metaKnown = true
}

func (f *fakeSession) fireReady() {
	f.mu.Lock()
	fn := f.onReady
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (f *fakeSession) fireEnded() {
	f.mu.Lock()
	fn := f.onEnded
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (f *fakeSession) isReleased() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

func (f *fakeSession) isPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *fakeSession) volumeLevel() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume
}

func (f *fakeSession) loadedSource() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.source
}

// fakeFactory hands out fakeSessions and remembers them in creation order.
type fakeFactory struct {
	mu       sync.Mutex
	sessions []*fakeSession
	fail     bool
}

func (f *fakeFactory) NewSession() (session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("no player available")
	}
	s := &fakeSession{volume: 1}
	f.sessions = append(f.sessions, s)
	return s, nil
}

func (f *fakeFactory) session(i int) *fakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[i]
}

func (f *fakeFactory) created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

// liveCount returns sessions not yet released.
func (f *fakeFactory) liveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int
	for _, s := range f.sessions {
		if !s.isReleased() {
			n++
		}
	}
	return n
}
