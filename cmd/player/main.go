// Package main provides the player server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/LusineKarapetyan/breathflow-playlist-creator/internal/api"
	"github.com/LusineKarapetyan/breathflow-playlist-creator/internal/app/engine"
	"github.com/LusineKarapetyan/breathflow-playlist-creator/internal/app/session"
	"github.com/LusineKarapetyan/breathflow-playlist-creator/internal/infra/config"
	"github.com/LusineKarapetyan/breathflow-playlist-creator/internal/infra/logger"
	"github.com/LusineKarapetyan/breathflow-playlist-creator/internal/infra/spotify"
)

var (
	app        = kingpin.New("breathflow-player", "breathflow playlist playback server")
	configPath = app.Flag("config", "Path to config file").Default("config/player.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{Output: "stdout", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	factory, err := buildFactory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build provider factory: %w", err)
	}

	gate := session.NewGate(factory,
		cfg.Playback.HandshakeAttempts,
		cfg.Playback.HandshakeInterval(),
	)

	eng := engine.New(engine.Config{
		PollInterval:      cfg.Playback.PollInterval(),
		StageReadyTimeout: cfg.Playback.StageReadyTimeout(),
		MinFadeStep:       cfg.Playback.MinFadeStep(),
		FadeSteps:         cfg.Playback.FadeSteps,
		AutoAdvance:       cfg.Playback.AutoAdvance,
	}, factory, gate)
	eng.Start()

	apiServer := api.NewServer(eng)
	go apiServer.Run(ctx)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(apiServer.Handler(), &http2.Server{}),
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		eng.Close()
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Engine first so both decks are silenced before connections drop
	eng.Close()
	cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	return nil
}

// buildFactory constructs the configured provider's session factory.
func buildFactory(ctx context.Context, cfg *config.Config) (*spotify.Factory, error) {
	switch cfg.Provider.Type {
	case "spotify":
		providerCfg, err := spotify.ConfigFromSettings(cfg.Provider.Settings)
		if err != nil {
			return nil, fmt.Errorf("invalid spotify settings: %w", err)
		}
		return spotify.NewFactory(ctx, providerCfg)
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Provider.Type)
	}
}
