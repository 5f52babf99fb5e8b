// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Playback PlaybackConfig `yaml:"playback"`
	Provider ProviderConfig `yaml:"provider"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig represents the API server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8080"`
}

// PlaybackConfig tunes the transition engine.
type PlaybackConfig struct {
	PollIntervalMs      int  `yaml:"poll_interval_ms" default:"100" validate:"gte=10,lte=5000"`
	StageReadyTimeoutMs int  `yaml:"stage_ready_timeout_ms" default:"3000" validate:"gte=100,lte=30000"`
	MinFadeStepMs       int  `yaml:"min_fade_step_ms" default:"50" validate:"gte=10,lte=1000"`
	FadeSteps           int  `yaml:"fade_steps" default:"40" validate:"gte=2,lte=500"`
	AutoAdvance         bool `yaml:"auto_advance" default:"true"`
	HandshakeAttempts   int  `yaml:"handshake_attempts" default:"10" validate:"gte=1,lte=100"`
	HandshakeIntervalMs int  `yaml:"handshake_interval_ms" default:"500" validate:"gte=50,lte=10000"`
}

// ProviderConfig selects and configures the media provider adapter.
// Settings are provider-specific and decoded by the adapter itself.
type ProviderConfig struct {
	Type     string         `yaml:"type" default:"spotify" validate:"required"`
	Settings map[string]any `yaml:"settings" validate:"required"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Output string `yaml:"output" default:"stdout"`
	Level  string `yaml:"level" default:"info"`
}

// Load loads configuration from a YAML file. Environment variables take
// precedence over file values for provider credentials.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
// Credentials set in the environment apply to every deck that leaves the
// corresponding field blank.
func (c *Config) overrideFromEnv() {
	if c.Provider.Settings == nil {
		return
	}
	decks, ok := c.Provider.Settings["decks"].([]any)
	if !ok {
		return
	}
	envKeys := map[string]string{
		"client_id":     "SPOTIFY_CLIENT_ID",
		"client_secret": "SPOTIFY_CLIENT_SECRET",
		"refresh_token": "SPOTIFY_REFRESH_TOKEN",
	}
	for _, d := range decks {
		deck, ok := d.(map[string]any)
		if !ok {
			continue
		}
		for key, env := range envKeys {
			if v := os.Getenv(env); v != "" {
				if cur, _ := deck[key].(string); cur == "" {
					deck[key] = v
				}
			}
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// PollInterval returns the progress poll interval.
func (c *PlaybackConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// StageReadyTimeout returns the bounded staging-ready wait.
func (c *PlaybackConfig) StageReadyTimeout() time.Duration {
	return time.Duration(c.StageReadyTimeoutMs) * time.Millisecond
}

// MinFadeStep returns the minimum fade step interval.
func (c *PlaybackConfig) MinFadeStep() time.Duration {
	return time.Duration(c.MinFadeStepMs) * time.Millisecond
}

// HandshakeInterval returns the delay between provider handshake attempts.
func (c *PlaybackConfig) HandshakeInterval() time.Duration {
	return time.Duration(c.HandshakeIntervalMs) * time.Millisecond
}
