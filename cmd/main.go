package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sonance/internal/audio"
	"github.com/desertthunder/sonance/internal/auth"
	"github.com/desertthunder/sonance/internal/client"
	"github.com/desertthunder/sonance/internal/player"
	"github.com/desertthunder/sonance/internal/repositories"
	"github.com/desertthunder/sonance/internal/services"
	"github.com/desertthunder/sonance/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

const defaultConfigPath = "config.toml"

func main() {
	os.Exit(run())
}

// run executes the CLI and returns the process exit code, so deferred cleanup runs before exit.
func run() int {
	sink := shared.NewLogSink(os.Stderr)
	logger := shared.NewLogger(sink)

	configPath, config, err := loadConfig()
	if err != nil {
		logger.Error("configuration error", "error", err)
		return 1
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))

	opts, cleanup := wire(config, logger)
	defer cleanup()
	opts.ConfigPath = configPath
	opts.LogSink = sink

	runner := NewRunner(opts)
	defer runner.Close()

	app := &cli.Command{
		Name:     "sonance",
		Usage:    "Browse and play your music library from the terminal",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = app.Run(ctx, os.Args)
	if errors.Is(err, shared.ErrSessionExpired) {
		fmt.Fprintln(os.Stderr, "session expired, please log in again with `sonance auth login`")
	} else if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("application error", "error", err)
	}
	return exitCode(err)
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}

// loadConfig reads $SONANCE_CONFIG, or ./config.toml when present, falling back to the defaults.
func loadConfig() (string, *shared.Config, error) {
	if path := os.Getenv("SONANCE_CONFIG"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return path, nil, fmt.Errorf("%w: %s", shared.ErrMissingConfig, path)
		}
		config, err := shared.LoadConfig(path)
		return path, config, err
	}

	if _, err := os.Stat(defaultConfigPath); err == nil {
		config, err := shared.LoadConfig(defaultConfigPath)
		return defaultConfigPath, config, err
	}
	return defaultConfigPath, shared.DefaultConfig(), nil
}

// wire builds the dependency graph shared by every command. The player is created lazily.
func wire(config *shared.Config, logger *log.Logger) (RunnerOpts, func()) {
	cleanup := func() {}

	var settings repositories.Settings
	db, err := shared.OpenStorage(config.Storage)
	if err != nil {
		logger.Warn("local storage unavailable, settings will not persist", "path", config.Storage.Path, "error", err)
		settings = repositories.NewMemorySettings()
	} else {
		settings = repositories.NewSettingsRepository(db)
		cleanup = func() { db.Close() }
	}
	prefs := repositories.NewPreferences(settings)

	httpClient := client.NewHTTPClient(config.API.Timeout)

	session := auth.NewManager(auth.Opts{
		BaseURL:    config.API.BaseURL,
		HTTPClient: httpClient,
		Store:      prefs,
		Logger:     logger,
	})

	var limiter *rate.Limiter
	if config.API.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.API.RateLimit), max(1, int(config.API.RateLimit)))
	}

	coordinator := client.New(client.Opts{
		BaseURL:    config.API.BaseURL,
		HTTPClient: httpClient,
		Session:    session,
		Limiter:    limiter,
		Logger:     logger,
	})
	library := services.NewLibraryService(coordinator)

	newPlayer := func() (*player.Player, error) {
		speaker, err := audio.New(logger)
		if err != nil {
			return nil, err
		}
		return player.New(player.Opts{
			Element:          speaker,
			Fetcher:          library,
			Tokens:           session,
			Volumes:          prefs,
			RestartThreshold: config.Player.RestartThreshold,
			DefaultVolume:    config.Player.DefaultVolume,
			Logger:           logger,
		}), nil
	}

	return RunnerOpts{
		Config:    config,
		Library:   library,
		API:       services.NewAPIService(coordinator),
		Auth:      session,
		Settings:  settings,
		NewPlayer: newPlayer,
		Logger:    logger,
	}, cleanup
}
