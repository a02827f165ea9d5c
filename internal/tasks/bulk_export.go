package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/sonance/internal/formatter"
	"github.com/desertthunder/sonance/internal/models"
	"github.com/desertthunder/sonance/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultWorkers   = 5
	maxWorkers       = 10
	defaultRateLimit = 5.0
	manifestName     = "export_manifest.json"
)

// Export formats accepted by [BulkExportOpts.Format].
var Formats = []string{"json", "csv", "markdown", "txt"}

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     string  // Export format: json, csv, markdown, txt
	OutputDir  string  // Base output directory (default: sonance_export_{epoch})
	NumWorkers int     // Concurrent workers (default: 5, max: 10)
	RateLimit  float64 // Playlist fetches per second (default: 5)
}

type playlistExportJob struct {
	PlaylistID string
	Export     *models.PlaylistExport
}

// BulkExport exports playlists concurrently with rate limiting and progress tracking. An empty ids exports every playlist.
//
// Playlists are fetched one at a time under the rate limit and handed to a pool of workers that write the files.
// Individual failures are recorded in the result; cancellation stops fetching and returns what finished.
// A manifest summarizing the run is written to {OutputDir}/export_manifest.json.
func (e *LibraryEngine) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	ids []string,
	opts BulkExportOpts,
) (*formatter.BulkExportResult, error) {
	if e.library == nil {
		return nil, fmt.Errorf("%w: library not initialized", shared.ErrServiceUnavailable)
	}

	if opts.Format == "" {
		opts.Format = "json"
	}
	if !validFormat(opts.Format) {
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, opts.Format)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("sonance_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultWorkers
	}
	if opts.NumWorkers > maxWorkers {
		opts.NumWorkers = maxWorkers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}

	if len(ids) == 0 {
		e.sendProgress(prog, listingPlaylistsUpdate())
		playlists, err := e.library.Playlists(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list playlists: %w", err)
		}
		for _, pl := range playlists {
			ids = append(ids, pl.ID)
		}
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	started := time.Now()
	result := &formatter.BulkExportResult{
		TotalPlaylists:  len(ids),
		OutputDirectory: opts.OutputDir,
		Results:         make([]formatter.PlaylistExportResult, 0, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan playlistExportJob, len(ids))
	results := make(chan formatter.PlaylistExportResult, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, playlistID := range ids {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			export, err := e.library.Playlist(ctx, playlistID)
			if err != nil {
				results <- formatter.PlaylistExportResult{
					PlaylistID:   playlistID,
					PlaylistName: fmt.Sprintf("Unknown (%s)", playlistID),
					Error:        fmt.Errorf("failed to fetch playlist: %w", err),
				}
				continue
			}

			e.sendProgress(prog, exportingPlaylistUpdate(i+1, len(ids), export.Playlist.Name))
			jobs <- playlistExportJob{PlaylistID: playlistID, Export: export}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(ids), res.PlaylistName, len(res.Files)))
		} else {
			result.FailedExports++
			e.logger.Warn("playlist export failed", "id", res.PlaylistID, "error", res.Error)
			e.sendProgress(prog, exportFailedUpdate(completed, len(ids), res.PlaylistName, res.Error))
		}
	}
	result.Elapsed = time.Since(started)

	manifestPath := filepath.Join(opts.OutputDir, manifestName)
	if err := formatter.WriteBulkExportManifest(result, opts.Format, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportWorker exports playlists from the jobs channel until it closes or ctx is done.
func (e *LibraryEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan playlistExportJob,
	results chan<- formatter.PlaylistExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			return
		}
		results <- exportSinglePlaylist(job, opts)
	}
}

// exportSinglePlaylist writes one playlist in the requested format.
func exportSinglePlaylist(j playlistExportJob, opts BulkExportOpts) formatter.PlaylistExportResult {
	result := formatter.PlaylistExportResult{
		PlaylistID:   j.PlaylistID,
		PlaylistName: j.Export.Playlist.Name,
		Files:        []string{},
	}

	id := j.Export.Playlist.ID
	if id == "" {
		id = j.PlaylistID
	}

	switch opts.Format {
	case "csv":
		csvRes, err := formatter.WriteCSVExport(j.Export, filepath.Join(opts.OutputDir, id))
		if err != nil {
			result.Error = fmt.Errorf("CSV export failed: %w", err)
			return result
		}
		result.Files = []string{csvRes.TracksFile, csvRes.MetadataFile}
	case "markdown":
		path, err := formatter.WriteMarkdownExport(j.Export, filepath.Join(opts.OutputDir, id))
		if err != nil {
			result.Error = fmt.Errorf("markdown export failed: %w", err)
			return result
		}
		result.Files = []string{path}
	case "txt":
		path, err := formatter.WriteTextExport(j.Export, filepath.Join(opts.OutputDir, id+"_tracks.txt"))
		if err != nil {
			result.Error = fmt.Errorf("text export failed: %w", err)
			return result
		}
		result.Files = []string{path}
	default:
		path, err := formatter.WriteJSONExport(j.Export, filepath.Join(opts.OutputDir, id+".json"))
		if err != nil {
			result.Error = err
			return result
		}
		result.Files = []string{path}
	}

	for _, f := range result.Files {
		if info, err := os.Stat(f); err == nil {
			result.Bytes += int(info.Size())
		}
	}
	result.Success = true
	return result
}

func validFormat(f string) bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}
