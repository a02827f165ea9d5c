package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/sonance/internal/formatter"
	"github.com/desertthunder/sonance/internal/shared"
	"github.com/desertthunder/sonance/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PlaylistsList prints the user's playlists.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	playlists, err := r.library.Playlists(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}

	r.writePlainHeader("Playlists")
	if len(playlists) == 0 {
		return r.writePlain("No playlists\n")
	}
	for _, p := range playlists {
		r.writePlain("%-24s %s (%d tracks, updated %s)\n", p.ID, p.Name, p.TrackCount, formatter.Ago(p.UpdatedAt))
	}
	return nil
}

// PlaylistsShow prints a playlist with its tracks.
func (r *Runner) PlaylistsShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	export, err := r.library.Playlist(ctx, cmd.StringArg("id"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(export, true)
	}

	r.writePlainHeader(export.Playlist.Name)
	if export.Playlist.Description != "" {
		r.writePlain("%s\n\n", export.Playlist.Description)
	}
	r.writeTracks(export.Tracks)
	return r.writePlainln("%d tracks, %s", len(export.Tracks), formatter.TotalLength(export.Tracks))
}

// PlaylistsCreate creates an empty playlist.
func (r *Runner) PlaylistsCreate(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	playlist, err := r.library.CreatePlaylist(ctx, cmd.StringArg("name"), cmd.String("description"))
	if err != nil {
		return err
	}
	return r.writePlain("✓ Created playlist %s (%s)\n", playlist.Name, playlist.ID)
}

// PlaylistsRename renames a playlist.
func (r *Runner) PlaylistsRename(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	playlist, err := r.library.RenamePlaylist(ctx, cmd.StringArg("id"), cmd.StringArg("name"))
	if err != nil {
		return err
	}
	return r.writePlain("✓ Renamed playlist %s to %s\n", playlist.ID, playlist.Name)
}

// PlaylistsDelete deletes a playlist.
func (r *Runner) PlaylistsDelete(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	id := cmd.StringArg("id")
	if err := r.library.DeletePlaylist(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted playlist %s\n", id)
}

// PlaylistsAdd appends a track to a playlist.
func (r *Runner) PlaylistsAdd(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	id, track := cmd.StringArg("id"), cmd.StringArg("track")
	if err := r.library.AddToPlaylist(ctx, id, track); err != nil {
		return err
	}
	return r.writePlain("✓ Added %s to %s\n", track, id)
}

// PlaylistsRemove removes a track from a playlist.
func (r *Runner) PlaylistsRemove(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	id, track := cmd.StringArg("id"), cmd.StringArg("track")
	if err := r.library.RemoveFromPlaylist(ctx, id, track); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %s from %s\n", track, id)
}

// PlaylistsExport exports the given playlists, or all of them, to --output in --format.
func (r *Runner) PlaylistsExport(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}
	if r.engine == nil {
		return fmt.Errorf("%w: export engine not initialized", shared.ErrServiceUnavailable)
	}

	opts := tasks.BulkExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
	}
	ids := cmd.Args().Slice()

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.writeProgress(update)
		}
	}()

	result, err := r.engine.BulkExport(ctx, progress, ids, opts)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	r.writePlainln("Export complete in %s", result.Elapsed.Round(time.Millisecond))
	r.writePlain("Succeeded: %d\n", result.SuccessfulExports)
	r.writePlain("Failed:    %d\n", result.FailedExports)
	r.writePlain("Output:    %s\n", result.OutputDirectory)
	r.writePlain("Manifest:  %s\n", result.ManifestPath)

	if result.FailedExports > 0 {
		return fmt.Errorf("%w: %d of %d playlists failed to export", shared.ErrAPIRequest, result.FailedExports, result.TotalPlaylists)
	}
	return nil
}

func (r *Runner) writeProgress(update tasks.ProgressUpdate) {
	if update.Total > 0 {
		r.writePlain("[%d/%d] %s\n", update.Step, update.Total, update.Message)
		return
	}
	r.writePlain("%s\n", update.Message)
}
