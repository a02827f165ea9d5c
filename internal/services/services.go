// package services defines the typed API surface of the music backend
package services

import (
	"context"
	"net/url"
	"strconv"

	"github.com/desertthunder/sonance/internal/models"
	"github.com/desertthunder/sonance/internal/player"
)

// Library is the music API used by the CLI, the TUI and the tasks engine. [LibraryService] implements it.
type Library interface {
	// Artists lists one page of catalog artists.
	Artists(ctx context.Context, opts PageOpts) (*models.Page[models.Artist], error)
	Artist(ctx context.Context, id string) (*models.Artist, error)
	ArtistAlbums(ctx context.Context, id string) ([]models.Album, error)

	Albums(ctx context.Context, opts PageOpts) (*models.Page[models.Album], error)
	// Album returns the album with its tracks.
	Album(ctx context.Context, id string) (*models.Album, error)

	Tracks(ctx context.Context, q TrackQuery) (*models.Page[models.Track], error)
	Track(ctx context.Context, id string) (*models.Track, error)

	Favorites(ctx context.Context) ([]models.Track, error)
	AddFavorite(ctx context.Context, trackID string) error
	RemoveFavorite(ctx context.Context, trackID string) error

	Playlists(ctx context.Context) ([]models.Playlist, error)
	// Playlist returns the playlist with its full track listing.
	Playlist(ctx context.Context, id string) (*models.PlaylistExport, error)
	CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error)
	RenamePlaylist(ctx context.Context, id, name string) (*models.Playlist, error)
	DeletePlaylist(ctx context.Context, id string) error
	AddToPlaylist(ctx context.Context, playlistID, trackID string) error
	RemoveFromPlaylist(ctx context.Context, playlistID, trackID string) error

	// Discover runs a natural-language search.
	Discover(ctx context.Context, query string, limit int) (*models.DiscoveryResult, error)
	// Recommend runs the recommendation agent to completion.
	Recommend(ctx context.Context, prompt string) (*models.Recommendation, error)
	Embeddings(ctx context.Context, limit int) ([]models.EmbeddingPoint, error)

	player.Fetcher
}

// PageOpts selects a page of a listing. Zero values let the API pick its defaults.
type PageOpts struct {
	Limit  int
	Offset int
}

func (o PageOpts) values() url.Values {
	q := url.Values{}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		q.Set("offset", strconv.Itoa(o.Offset))
	}
	return q
}

// TrackQuery filters the track listing.
type TrackQuery struct {
	Search   string
	ArtistID string
	AlbumID  string
	PageOpts
}

func (q TrackQuery) values() url.Values {
	v := q.PageOpts.values()
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.ArtistID != "" {
		v.Set("artist_id", q.ArtistID)
	}
	if q.AlbumID != "" {
		v.Set("album_id", q.AlbumID)
	}
	return v
}
