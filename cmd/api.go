package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/sonance/internal/shared"
	"github.com/desertthunder/sonance/internal/tasks"
	"github.com/urfave/cli/v3"
)

const dumpFile = "api_dump.json"

// APIGet makes a direct, authenticated GET request to the music API.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireRawAPI(ctx); err != nil {
		return err
	}

	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	r.logger.Info("GET request", "path", path)

	resp, err := r.api.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, !cmd.Bool("compact"))
	}
	return r.writePlain("%s\n", resp.Body)
}

// APIPost makes a direct, authenticated POST request with a JSON body.
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireRawAPI(ctx); err != nil {
		return err
	}

	path := cmd.StringArg("path")
	data := cmd.String("data")

	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	if data == "" {
		return fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}
	if err := shared.ValidateJSON([]byte(data)); err != nil {
		return err
	}

	r.logger.Info("POST request", "path", path)

	resp, err := r.api.Post(ctx, path, []byte(data))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, true)
	}
	return r.writePlain("%s\n", resp.Body)
}

// APIDump fetches every library endpoint and prints the combined result.
func (r *Runner) APIDump(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireRawAPI(ctx); err != nil {
		return err
	}

	pretty := cmd.Bool("pretty")
	save := cmd.Bool("save")

	r.logger.Info("dumping API state")
	r.writePlain("Fetching library state...\n\n")

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.writeProgress(update)
		}
	}()

	result, err := r.engine.Dump(ctx, progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	dump := result.Data()
	r.writePlain("\n✓ Dump complete (%d errors)\n\n", len(dump.Errors))

	if save {
		data, err := shared.MarshalJSON(dump, true)
		if err != nil {
			return fmt.Errorf("failed to marshal dump: %w", err)
		}
		if err := os.WriteFile(dumpFile, data, 0644); err != nil {
			r.logger.Warn("failed to save dump", "error", err)
		} else {
			r.logger.Info("dump saved", "file", dumpFile)
			r.writePlain("✓ Dump saved to %s\n\n", dumpFile)
		}
	}

	return r.writeJSON(dump, pretty)
}

func (r *Runner) requireRawAPI(ctx context.Context) error {
	if r.api == nil {
		return fmt.Errorf("%w: API client not initialized", shared.ErrServiceUnavailable)
	}
	return r.requireSession(ctx)
}
