package formatter

import (
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/sonance/internal/shared"
)

// PlaylistExportResult is the outcome of exporting one playlist.
type PlaylistExportResult struct {
	PlaylistID   string
	PlaylistName string
	Success      bool
	Files        []string
	Bytes        int
	Error        error
}

// BulkExportResult summarizes a bulk export.
type BulkExportResult struct {
	TotalPlaylists    int
	SuccessfulExports int
	FailedExports     int
	Results           []PlaylistExportResult
	OutputDirectory   string
	ManifestPath      string
	Elapsed           time.Duration
}

type manifestEntry struct {
	PlaylistID   string   `json:"playlist_id"`
	PlaylistName string   `json:"playlist_name"`
	Status       string   `json:"status"`
	Files        []string `json:"files,omitempty"`
	Size         string   `json:"size,omitempty"`
	Error        string   `json:"error,omitempty"`
}

type manifest struct {
	Format            string          `json:"format"`
	GeneratedAt       time.Time       `json:"generated_at"`
	Elapsed           string          `json:"elapsed,omitempty"`
	TotalPlaylists    int             `json:"total_playlists"`
	SuccessfulExports int             `json:"successful_exports"`
	FailedExports     int             `json:"failed_exports"`
	TotalSize         string          `json:"total_size"`
	Playlists         []manifestEntry `json:"playlists"`
}

// WriteBulkExportManifest writes a JSON summary of a bulk export to path.
func WriteBulkExportManifest(result *BulkExportResult, format, path string) error {
	m := manifest{
		Format:            format,
		GeneratedAt:       time.Now().UTC(),
		TotalPlaylists:    result.TotalPlaylists,
		SuccessfulExports: result.SuccessfulExports,
		FailedExports:     result.FailedExports,
		Playlists:         make([]manifestEntry, 0, len(result.Results)),
	}
	if result.Elapsed > 0 {
		m.Elapsed = result.Elapsed.Round(time.Millisecond).String()
	}

	total := 0
	for _, r := range result.Results {
		entry := manifestEntry{PlaylistID: r.PlaylistID, PlaylistName: r.PlaylistName, Files: r.Files}
		if r.Success {
			entry.Status = "success"
			entry.Size = Bytes(r.Bytes)
			total += r.Bytes
		} else {
			entry.Status = "failed"
			if r.Error != nil {
				entry.Error = r.Error.Error()
			}
		}
		m.Playlists = append(m.Playlists, entry)
	}
	m.TotalSize = Bytes(total)

	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
