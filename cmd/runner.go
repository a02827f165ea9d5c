package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sonance/internal/auth"
	"github.com/desertthunder/sonance/internal/player"
	"github.com/desertthunder/sonance/internal/repositories"
	"github.com/desertthunder/sonance/internal/services"
	"github.com/desertthunder/sonance/internal/shared"
	"github.com/desertthunder/sonance/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PlayerFactory builds the audio player on first use. Only `play` and `tui` need one.
type PlayerFactory func() (*player.Player, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	library    services.Library
	api        *services.APIService
	auth       *auth.Manager
	settings   repositories.Settings
	engine     *tasks.LibraryEngine
	newPlayer  PlayerFactory
	player     *player.Player
	logger     *log.Logger
	logSink    *shared.LogSink
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Library    services.Library
	API        *services.APIService
	Auth       *auth.Manager
	Settings   repositories.Settings
	NewPlayer  PlayerFactory
	Logger     *log.Logger
	LogSink    *shared.LogSink // when set, every logger built on it is redirected by `tui`
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	var api tasks.APIClient
	if opts.API != nil {
		api = opts.API
	}
	engine := tasks.NewLibraryEngine(opts.Library, api, opts.Logger)

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		library:    opts.Library,
		api:        opts.API,
		auth:       opts.Auth,
		settings:   opts.Settings,
		engine:     engine,
		newPlayer:  opts.NewPlayer,
		logger:     opts.Logger,
		logSink:    opts.LogSink,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, libraryCommand, favoritesCommand, playlistsCommand,
		discoverCommand, recommendCommand, embeddingsCommand, playCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger swaps the logger, e.g. to a file while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Close releases the player if one was created.
func (r *Runner) Close() error {
	if r.player == nil {
		return nil
	}
	return r.player.Close()
}

// requireSession resumes the persisted session for commands that call authenticated endpoints.
func (r *Runner) requireSession(ctx context.Context) error {
	if r.auth == nil || r.library == nil {
		return fmt.Errorf("%w: API client not initialized", shared.ErrServiceUnavailable)
	}
	if r.auth.Session().Authenticated() {
		return nil
	}

	if err := r.auth.Restore(ctx); err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			return fmt.Errorf("%w: run `sonance auth login` first", shared.ErrNotAuthenticated)
		}
		return err
	}
	return nil
}

// playerInstance creates the player once and registers it with the session so logout stops playback.
func (r *Runner) playerInstance() (*player.Player, error) {
	if r.player != nil {
		return r.player, nil
	}
	if r.newPlayer == nil {
		return nil, fmt.Errorf("%w: no player configured", shared.ErrAudioUnavailable)
	}

	p, err := r.newPlayer()
	if err != nil {
		return nil, err
	}
	if r.auth != nil {
		r.auth.SetPlayer(p)
	}
	r.player = p
	return p, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
