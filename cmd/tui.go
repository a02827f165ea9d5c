package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/sonance/internal/shared"
	"github.com/desertthunder/sonance/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	f, err := shared.OpenLogFile(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer f.Close()

	if r.logSink != nil {
		prev := r.logSink.Redirect(f)
		defer r.logSink.Redirect(prev)
	} else {
		fileLogger := shared.NewLogger(f)
		fileLogger.SetLevel(r.logger.GetLevel())
		r.SetLogger(fileLogger)
	}

	p, err := r.playerInstance()
	if err != nil {
		return err
	}

	return ui.Run(ctx, ui.Opts{
		Library: r.library,
		Player:  p,
		Session: r.auth,
		Logger:  r.logger,
	})
}
