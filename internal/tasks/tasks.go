package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sonance/internal/models"
	"github.com/desertthunder/sonance/internal/services"
	"github.com/desertthunder/sonance/internal/shared"
)

// EndpointResult represents the result of fetching data from a single API endpoint.
type EndpointResult struct {
	Endpoint string
	Data     any
	Error    error
}

// DumpResult contains the decoded body of every library endpoint.
type DumpResult struct {
	Profile    any              // Signed-in user
	Artists    any              // Catalog artists
	Albums     any              // Catalog albums
	Tracks     any              // Catalog tracks
	Favorites  any              // Favorite tracks
	Playlists  any              // User playlists
	Embeddings any              // 3D embedding projection
	Errors     []EndpointResult // Failed endpoint fetches
}

// DumpData is the JSON shape written by `sonance api dump`.
type DumpData struct {
	Profile    any      `json:"profile"`
	Artists    any      `json:"artists,omitempty"`
	Albums     any      `json:"albums,omitempty"`
	Tracks     any      `json:"tracks,omitempty"`
	Favorites  any      `json:"favorites,omitempty"`
	Playlists  any      `json:"playlists,omitempty"`
	Embeddings any      `json:"embeddings,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// Data converts the result into its serializable form.
func (r *DumpResult) Data() DumpData {
	d := DumpData{
		Profile:    r.Profile,
		Artists:    r.Artists,
		Albums:     r.Albums,
		Tracks:     r.Tracks,
		Favorites:  r.Favorites,
		Playlists:  r.Playlists,
		Embeddings: r.Embeddings,
	}
	for _, e := range r.Errors {
		d.Errors = append(d.Errors, fmt.Sprintf("%s: %v", e.Endpoint, e.Error))
	}
	return d
}

type endpointOperation struct {
	name    string
	path    string
	target  *any
	phase   Phase
	message string
}

// APIClient is the raw GET used by [LibraryEngine.Dump]. [services.APIService] implements it.
type APIClient interface {
	Get(ctx context.Context, path string) (*services.APIResponse, error)
}

// PlaylistSource lists and expands playlists for [LibraryEngine.BulkExport]. [services.Library] satisfies it.
type PlaylistSource interface {
	Playlists(ctx context.Context) ([]models.Playlist, error)
	Playlist(ctx context.Context, id string) (*models.PlaylistExport, error)
}

// LibraryEngine runs the long library operations behind `sonance api dump` and `sonance playlists export`.
type LibraryEngine struct {
	library PlaylistSource
	api     APIClient
	logger  *log.Logger
}

// NewLibraryEngine creates a new LibraryEngine. Either dependency may be nil if the matching operation is unused.
func NewLibraryEngine(library PlaylistSource, api APIClient, logger *log.Logger) *LibraryEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &LibraryEngine{
		library: library,
		api:     api,
		logger:  shared.WithLogger(logger, "component", "tasks"),
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *LibraryEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Dump fetches every library endpoint. Failed endpoints are collected in [DumpResult.Errors] rather than aborting the run.
func (e *LibraryEngine) Dump(ctx context.Context, progress chan<- ProgressUpdate) (*DumpResult, error) {
	if e.api == nil {
		return nil, fmt.Errorf("%w: API client not initialized", shared.ErrServiceUnavailable)
	}

	result := &DumpResult{
		Errors: []EndpointResult{},
	}

	endpoints := []endpointOperation{
		{name: "profile", path: "/auth/me", target: &result.Profile, phase: FetchProfile, message: "Fetching profile..."},
		{name: "artists", path: "/music/artists", target: &result.Artists, phase: FetchArtists, message: "Fetching artists..."},
		{name: "albums", path: "/music/albums", target: &result.Albums, phase: FetchAlbums, message: "Fetching albums..."},
		{name: "tracks", path: "/music/tracks", target: &result.Tracks, phase: FetchTracks, message: "Fetching tracks..."},
		{name: "favorites", path: "/library/favorites", target: &result.Favorites, phase: FetchFavorites, message: "Fetching favorites..."},
		{name: "playlists", path: "/library/playlists", target: &result.Playlists, phase: FetchPlaylists, message: "Fetching playlists..."},
		{name: "embeddings", path: "/music/embeddings", target: &result.Embeddings, phase: FetchEmbeddings, message: "Fetching embeddings..."},
	}

	totalSteps := len(endpoints)

	for i, endpoint := range endpoints {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		e.sendProgress(progress, operationUpdate(endpoint, i+1, totalSteps))

		resp, err := e.api.Get(ctx, endpoint.path)
		switch {
		case err != nil:
			result.Errors = append(result.Errors, EndpointResult{Endpoint: endpoint.path, Error: err})
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			result.Errors = append(result.Errors, EndpointResult{
				Endpoint: endpoint.path,
				Error:    fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode),
			})
		default:
			*endpoint.target = resp.JSONData
		}
	}

	if len(result.Errors) > 0 {
		e.logger.Warn("dump finished with errors", "failed", len(result.Errors), "total", totalSteps)
	}
	return result, nil
}
