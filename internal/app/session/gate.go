package session

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Prober checks whether the external media provider is reachable and able to
// host sessions. A nil error means the provider answered the handshake.
type Prober interface {
	Probe(ctx context.Context) error
}

// Gate is a reference-counted readiness gate for the media provider.
//
// The first Acquire starts a handshake loop that probes the provider with
// bounded attempts. If an attempt succeeds the gate becomes ready; if all
// attempts are exhausted the gate settles into degraded mode, in which the
// engine keeps playing sequentially but never starts a crossfade. The last
// Release tears the loop down.
type Gate struct {
	mu       sync.Mutex
	prober   Prober
	attempts int
	interval time.Duration

	refs     int
	ready    bool
	degraded bool
	done     chan struct{}
	cancel   context.CancelFunc
}

// NewGate creates a gate that probes p up to attempts times, interval apart.
func NewGate(p Prober, attempts int, interval time.Duration) *Gate {
	if attempts < 1 {
		attempts = 1
	}
	return &Gate{
		prober:   p,
		attempts: attempts,
		interval: interval,
	}
}

// Acquire registers a holder. The handshake loop starts on the first call.
func (g *Gate) Acquire() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.refs++
	if g.refs > 1 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	g.done = make(chan struct{})
	g.ready = false
	g.degraded = false
	go g.handshake(ctx, g.done)
}

// Release drops a holder. The handshake loop stops when the last holder
// releases; releasing an unacquired gate is a no-op.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.refs == 0 {
		return
	}
	g.refs--
	if g.refs == 0 && g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
}

// Ready reports whether the provider handshake has succeeded.
func (g *Gate) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready
}

// Degraded reports whether the handshake exhausted all attempts. In degraded
// mode crossfades are disabled and playback advances only at natural end.
func (g *Gate) Degraded() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.degraded
}

// Done returns a channel closed once the handshake has settled either way.
func (g *Gate) Done() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.done
}

func (g *Gate) handshake(ctx context.Context, done chan struct{}) {
	defer close(done)

	for attempt := 1; attempt <= g.attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(g.interval):
			}
		}

		if err := g.prober.Probe(ctx); err != nil {
			zlog.Warn().Msgf("session: provider handshake failed (attempt %d/%d): %v", attempt, g.attempts, err)
			continue
		}

		g.mu.Lock()
		g.ready = true
		g.mu.Unlock()
		zlog.Info().Msg("session: provider ready")
		return
	}

	g.mu.Lock()
	g.degraded = true
	g.mu.Unlock()
	zlog.Warn().Msg("session: provider unavailable, falling back to single-session playback (no crossfade)")
}
