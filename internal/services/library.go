package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/desertthunder/sonance/internal/client"
	"github.com/desertthunder/sonance/internal/models"
	"github.com/desertthunder/sonance/internal/player"
	"github.com/desertthunder/sonance/internal/shared"
)

var _ Library = (*LibraryService)(nil)

// LibraryService implements [Library] over the request coordinator.
type LibraryService struct {
	api *client.Coordinator
}

// NewLibraryService creates a [LibraryService].
func NewLibraryService(api *client.Coordinator) *LibraryService {
	return &LibraryService{api: api}
}

func (s *LibraryService) Artists(ctx context.Context, opts PageOpts) (*models.Page[models.Artist], error) {
	var page models.Page[models.Artist]
	if err := s.api.GetJSON(ctx, "/music/artists", opts.values(), &page); err != nil {
		return nil, fmt.Errorf("failed to list artists: %w", err)
	}
	return &page, nil
}

func (s *LibraryService) Artist(ctx context.Context, id string) (*models.Artist, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}
	var artist models.Artist
	if err := s.api.GetJSON(ctx, "/music/artists/"+url.PathEscape(id), nil, &artist); err != nil {
		return nil, fmt.Errorf("failed to get artist %s: %w", id, err)
	}
	return &artist, nil
}

func (s *LibraryService) ArtistAlbums(ctx context.Context, id string) ([]models.Album, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}
	var albums []models.Album
	if err := s.api.GetJSON(ctx, "/music/artists/"+url.PathEscape(id)+"/albums", nil, &albums); err != nil {
		return nil, fmt.Errorf("failed to list albums for artist %s: %w", id, err)
	}
	return albums, nil
}

func (s *LibraryService) Albums(ctx context.Context, opts PageOpts) (*models.Page[models.Album], error) {
	var page models.Page[models.Album]
	if err := s.api.GetJSON(ctx, "/music/albums", opts.values(), &page); err != nil {
		return nil, fmt.Errorf("failed to list albums: %w", err)
	}
	return &page, nil
}

func (s *LibraryService) Album(ctx context.Context, id string) (*models.Album, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: album id", shared.ErrMissingArgument)
	}
	var album models.Album
	if err := s.api.GetJSON(ctx, "/music/albums/"+url.PathEscape(id), nil, &album); err != nil {
		return nil, fmt.Errorf("failed to get album %s: %w", id, err)
	}
	return &album, nil
}

func (s *LibraryService) Tracks(ctx context.Context, q TrackQuery) (*models.Page[models.Track], error) {
	var page models.Page[models.Track]
	if err := s.api.GetJSON(ctx, "/music/tracks", q.values(), &page); err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}
	return &page, nil
}

func (s *LibraryService) Track(ctx context.Context, id string) (*models.Track, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}
	var track models.Track
	if err := s.api.GetJSON(ctx, "/music/tracks/"+url.PathEscape(id), nil, &track); err != nil {
		return nil, fmt.Errorf("failed to get track %s: %w", id, err)
	}
	return &track, nil
}

func (s *LibraryService) Favorites(ctx context.Context) ([]models.Track, error) {
	var tracks []models.Track
	if err := s.api.GetJSON(ctx, "/library/favorites", nil, &tracks); err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	for i := range tracks {
		tracks[i].Favorite = true
	}
	return tracks, nil
}

func (s *LibraryService) AddFavorite(ctx context.Context, trackID string) error {
	if trackID == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}
	if err := s.api.PostJSON(ctx, "/library/favorites/"+url.PathEscape(trackID), nil, nil); err != nil {
		return fmt.Errorf("failed to favorite %s: %w", trackID, err)
	}
	return nil
}

func (s *LibraryService) RemoveFavorite(ctx context.Context, trackID string) error {
	if trackID == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}
	if err := s.api.Delete(ctx, "/library/favorites/"+url.PathEscape(trackID)); err != nil {
		return fmt.Errorf("failed to unfavorite %s: %w", trackID, err)
	}
	return nil
}

func (s *LibraryService) Playlists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	if err := s.api.GetJSON(ctx, "/library/playlists", nil, &playlists); err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	return playlists, nil
}

// playlistDetail is the wire shape of GET /library/playlists/{id}.
type playlistDetail struct {
	models.Playlist
	Tracks []models.Track `json:"tracks"`
}

func (s *LibraryService) Playlist(ctx context.Context, id string) (*models.PlaylistExport, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	var detail playlistDetail
	if err := s.api.GetJSON(ctx, playlistPath(id), nil, &detail); err != nil {
		return nil, fmt.Errorf("failed to get playlist %s: %w", id, err)
	}
	if detail.TrackCount == 0 {
		detail.TrackCount = len(detail.Tracks)
	}
	return &models.PlaylistExport{Playlist: detail.Playlist, Tracks: detail.Tracks}, nil
}

func (s *LibraryService) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}
	body := map[string]string{"name": name, "description": description}
	var playlist models.Playlist
	if err := s.api.PostJSON(ctx, "/library/playlists", body, &playlist); err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}
	return &playlist, nil
}

func (s *LibraryService) RenamePlaylist(ctx context.Context, id, name string) (*models.Playlist, error) {
	if id == "" || name == "" {
		return nil, fmt.Errorf("%w: playlist id and name", shared.ErrMissingArgument)
	}
	var playlist models.Playlist
	if err := s.api.PatchJSON(ctx, playlistPath(id), map[string]string{"name": name}, &playlist); err != nil {
		return nil, fmt.Errorf("failed to rename playlist %s: %w", id, err)
	}
	return &playlist, nil
}

func (s *LibraryService) DeletePlaylist(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	if err := s.api.Delete(ctx, playlistPath(id)); err != nil {
		return fmt.Errorf("failed to delete playlist %s: %w", id, err)
	}
	return nil
}

func (s *LibraryService) AddToPlaylist(ctx context.Context, playlistID, trackID string) error {
	if playlistID == "" || trackID == "" {
		return fmt.Errorf("%w: playlist id and track id", shared.ErrMissingArgument)
	}
	body := map[string]string{"track_id": trackID}
	if err := s.api.PostJSON(ctx, playlistPath(playlistID)+"/tracks", body, nil); err != nil {
		return fmt.Errorf("failed to add %s to playlist %s: %w", trackID, playlistID, err)
	}
	return nil
}

func (s *LibraryService) RemoveFromPlaylist(ctx context.Context, playlistID, trackID string) error {
	if playlistID == "" || trackID == "" {
		return fmt.Errorf("%w: playlist id and track id", shared.ErrMissingArgument)
	}
	if err := s.api.Delete(ctx, playlistPath(playlistID)+"/tracks/"+url.PathEscape(trackID)); err != nil {
		return fmt.Errorf("failed to remove %s from playlist %s: %w", trackID, playlistID, err)
	}
	return nil
}

func (s *LibraryService) Discover(ctx context.Context, query string, limit int) (*models.DiscoveryResult, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}
	body := map[string]any{"query": query}
	if limit > 0 {
		body["limit"] = limit
	}
	var result models.DiscoveryResult
	if err := s.api.PostJSON(ctx, "/discover/search", body, &result); err != nil {
		return nil, fmt.Errorf("discovery search failed: %w", err)
	}
	if result.Query == "" {
		result.Query = query
	}
	return &result, nil
}

func (s *LibraryService) Recommend(ctx context.Context, prompt string) (*models.Recommendation, error) {
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt", shared.ErrMissingArgument)
	}
	var rec models.Recommendation
	if err := s.api.PostJSON(ctx, "/agent/recommend", map[string]string{"prompt": prompt}, &rec); err != nil {
		return nil, fmt.Errorf("recommendation failed: %w", err)
	}
	if rec.Prompt == "" {
		rec.Prompt = prompt
	}
	return &rec, nil
}

func (s *LibraryService) Embeddings(ctx context.Context, limit int) ([]models.EmbeddingPoint, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var points []models.EmbeddingPoint
	if err := s.api.GetJSON(ctx, "/music/embeddings", q, &points); err != nil {
		return nil, fmt.Errorf("failed to fetch embeddings: %w", err)
	}
	return points, nil
}

// FetchAudio downloads the raw audio for trackID. It implements [player.Fetcher].
func (s *LibraryService) FetchAudio(ctx context.Context, trackID string) (*player.Source, error) {
	if trackID == "" {
		return nil, fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}
	data, contentType, err := s.api.PostRaw(ctx, "/music/stream", map[string]string{"track_id": trackID})
	if err != nil {
		return nil, fmt.Errorf("failed to stream %s: %w", trackID, err)
	}
	return player.NewSource(trackID, data, contentType), nil
}

func playlistPath(id string) string {
	return "/library/playlists/" + url.PathEscape(id)
}
