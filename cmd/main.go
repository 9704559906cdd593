package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/h4nsec/SpotiPlay/internal/selection"
	"github.com/h4nsec/SpotiPlay/internal/services"
	"github.com/h4nsec/SpotiPlay/internal/shared"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	configPath := os.Getenv("SPOTIPLAY_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	config, err := shared.ResolveConfig(configPath)
	if err != nil {
		logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		config = shared.DefaultConfig()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var spotifyService *services.SpotifyService
	if svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map()); err == nil {
		svc.SetLogger(logger)
		svc.SetRateLimit(config.Resolver.RateLimit)
		if token := config.Credentials.Spotify.Token(); token != nil {
			if err := svc.OAuthenticate(ctx, token); err != nil {
				logger.Warn("stored spotify token rejected", "error", err)
			}
		}
		spotifyService = svc
	} else {
		logger.Debug("spotify service not configured", "error", err)
	}

	codec, err := selection.New(config.Selection)
	if err != nil {
		logger.Warn("selection codec unavailable, offers will not be verified", "backend", config.Selection.Backend, "error", err)
	}

	opts := RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Codec:      codec,
		Logger:     logger,
	}
	if spotifyService != nil {
		opts.Catalog = spotifyService
	}
	runner := NewRunner(opts)
	if spotifyService != nil {
		runner.persistRefreshedTokens(spotifyService)
	}

	app := &cli.Command{
		Name:     "spotiplay",
		Usage:    "Turn setlist.fm setlists into Spotify playlists",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
