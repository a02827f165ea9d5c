// package models defines the data model for the sonance music client
package models

import (
	"fmt"
	"time"
)

// User is the account behind a [Session].
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Session pairs the current access token with the identity it was issued for.
//
// User is non-nil only when AccessToken is set.
type Session struct {
	AccessToken string
	User        *User
}

// Authenticated reports whether both halves of the session are populated.
func (s Session) Authenticated() bool {
	return s.AccessToken != "" && s.User != nil
}

// Artist is a catalog artist.
type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres,omitempty"`
	ImageURL   string   `json:"image_url,omitempty"`
	AlbumCount int      `json:"album_count"`
}

// Album is a catalog album. Tracks is only populated by detail lookups.
type Album struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	ArtistID   string  `json:"artist_id"`
	ArtistName string  `json:"artist_name"`
	Year       int     `json:"year,omitempty"`
	CoverURL   string  `json:"cover_url,omitempty"`
	TrackCount int     `json:"track_count"`
	Tracks     []Track `json:"tracks,omitempty"`
}

// Track is a single playable recording.
type Track struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	ArtistID        string `json:"artist_id"`
	ArtistName      string `json:"artist_name"`
	AlbumID         string `json:"album_id,omitempty"`
	AlbumTitle      string `json:"album_title,omitempty"`
	TrackNumber     int    `json:"track_number,omitempty"`
	DurationSeconds int    `json:"duration_seconds"`
	Favorite        bool   `json:"is_favorite"`
}

// Duration returns the track length as a [time.Duration].
func (t Track) Duration() time.Duration {
	return time.Duration(t.DurationSeconds) * time.Second
}

// String renders "Artist - Title".
func (t Track) String() string {
	if t.ArtistName == "" {
		return t.Title
	}
	return fmt.Sprintf("%s - %s", t.ArtistName, t.Title)
}

// Playlist is a user-owned ordered track collection.
type Playlist struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	TrackCount  int       `json:"track_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PlaylistExport is a playlist together with its full track listing.
type PlaylistExport struct {
	Playlist Playlist `json:"playlist"`
	Tracks   []Track  `json:"tracks"`
}

// Page is the API's limit/offset pagination envelope.
type Page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// HasNext reports whether another page exists after this one.
func (p Page[T]) HasNext() bool {
	return p.Offset+len(p.Items) < p.Total
}

// NextOffset returns the offset of the following page.
func (p Page[T]) NextOffset() int {
	return p.Offset + len(p.Items)
}

// DiscoveryResult is the answer to a natural-language search.
type DiscoveryResult struct {
	Query          string  `json:"query"`
	Interpretation string  `json:"interpretation,omitempty"`
	Tracks         []Track `json:"tracks"`
}

// AgentStep records one tool invocation made by the recommendation agent.
type AgentStep struct {
	Tool   string `json:"tool"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Recommendation is the outcome of an agent recommendation run.
type Recommendation struct {
	SessionID string      `json:"session_id"`
	Prompt    string      `json:"prompt"`
	Steps     []AgentStep `json:"steps"`
	Tracks    []Track     `json:"tracks"`
	Summary   string      `json:"summary"`
}

// EmbeddingPoint is a track's position in the reduced embedding space.
type EmbeddingPoint struct {
	TrackID    string  `json:"track_id"`
	Title      string  `json:"title"`
	ArtistName string  `json:"artist_name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Cluster    int     `json:"cluster"`
}
