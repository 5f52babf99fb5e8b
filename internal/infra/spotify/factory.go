package spotify

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/LusineKarapetyan/breathflow-playlist-creator/internal/app/session"
)

// Factory hands out sessions backed by a pool of decks. Two decks are
// enough for crossfades; a single deck still supports sequential playback.
type Factory struct {
	mu    sync.Mutex
	decks []*deck
	inUse map[*deck]bool
	poll  time.Duration
}

// NewFactory authenticates all configured decks and builds the pool.
func NewFactory(ctx context.Context, cfg *Config) (*Factory, error) {
	if len(cfg.Decks) == 0 {
		return nil, errors.New("at least one deck is required")
	}
	if len(cfg.Decks) < 2 {
		zlog.Warn().Msg("spotify: single deck configured, crossfades need two")
	}

	decks := make([]*deck, 0, len(cfg.Decks))
	for _, dc := range cfg.Decks {
		d, err := newDeck(ctx, dc)
		if err != nil {
			return nil, errors.Wrapf(err, "deck %s", dc.Name)
		}
		decks = append(decks, d)
	}

	return &Factory{
		decks: decks,
		inUse: make(map[*deck]bool),
		poll:  time.Duration(cfg.PollIntervalMs) * time.Millisecond,
	}, nil
}

// NewSession allocates a free deck and wraps it in a session.
// Implements session.Factory.
func (f *Factory) NewSession() (session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, d := range f.decks {
		if !f.inUse[d] {
			f.inUse[d] = true
			zlog.Debug().Msgf("spotify: deck %s allocated", d.name)
			return newPlayerSession(f, d, f.poll), nil
		}
	}
	return nil, errors.New("no free deck")
}

// release returns a deck to the pool.
func (f *Factory) release(d *deck) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.inUse, d)
	zlog.Debug().Msgf("spotify: deck %s released", d.name)
}

// Probe checks that every deck can see its device.
// Implements session.Prober for the readiness gate.
func (f *Factory) Probe(ctx context.Context) error {
	f.mu.Lock()
	decks := make([]*deck, len(f.decks))
	copy(decks, f.decks)
	f.mu.Unlock()

	for _, d := range decks {
		if err := d.probe(ctx); err != nil {
			return err
		}
	}
	return nil
}
