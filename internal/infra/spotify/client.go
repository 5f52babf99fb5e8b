// Package spotify implements the media session contract on top of Spotify
// Connect. Each configured "deck" pairs its own API credentials with a
// Connect device, so two decks can stream simultaneously during a crossfade.
package spotify

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// DeckConfig holds the credentials and target device of a single deck.
type DeckConfig struct {
	Name         string `mapstructure:"name"`
	ClientID     string `mapstructure:"client_id" validate:"required"`
	ClientSecret string `mapstructure:"client_secret" validate:"required"`
	RefreshToken string `mapstructure:"refresh_token" validate:"required"`
	DeviceID     string `mapstructure:"device_id" validate:"required"`
}

// Config represents the provider settings block.
type Config struct {
	Decks          []DeckConfig `mapstructure:"decks" validate:"required,min=1,dive"`
	PollIntervalMs int          `mapstructure:"poll_interval_ms" default:"500" validate:"gte=100,lte=5000"`
}

// ConfigFromSettings decodes the provider settings map into a Config.
func ConfigFromSettings(settings map[string]any) (*Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &cfg,
		TagName: "mapstructure",
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &cfg, nil
}

// deck is one playable Connect device with its own authenticated client.
type deck struct {
	name     string
	deviceID spotify.ID
	client   *spotify.Client
}

// newDeck authenticates a deck from its refresh token.
func newDeck(ctx context.Context, cfg DeckConfig) (*deck, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("deck credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserReadPlaybackState,
			spotifyauth.ScopeUserModifyPlaybackState,
		),
	)

	token := &oauth2.Token{RefreshToken: cfg.RefreshToken}
	httpClient := auth.Client(ctx, token)

	name := cfg.Name
	if name == "" {
		name = cfg.DeviceID
	}
	return &deck{
		name:     name,
		deviceID: spotify.ID(cfg.DeviceID),
		client:   spotify.New(httpClient),
	}, nil
}

// probe verifies the deck's device is visible to its account.
func (d *deck) probe(ctx context.Context) error {
	devices, err := d.client.PlayerDevices(ctx)
	if err != nil {
		return errors.Wrapf(err, "deck %s: device list failed", d.name)
	}
	for _, dev := range devices {
		if dev.ID == d.deviceID {
			return nil
		}
	}
	return errors.Newf("deck %s: device %s not visible", d.name, d.deviceID)
}

// trackURI maps an opaque source reference to a Spotify URI. Bare IDs are
// treated as track IDs; full URIs pass through.
func trackURI(source string) spotify.URI {
	if strings.HasPrefix(source, "spotify:") {
		return spotify.URI(source)
	}
	return spotify.URI("spotify:track:" + source)
}
