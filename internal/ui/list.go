package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/sonance/internal/formatter"
	"github.com/desertthunder/sonance/internal/models"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = trackItem{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks", i.playlist.TrackCount)
	if i.playlist.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Description)
	}
	return desc
}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track    models.Track
	favorite bool
	current  bool
}

func (i trackItem) FilterValue() string { return i.track.Title }
func (i trackItem) Title() string {
	title := i.track.Title
	if i.favorite {
		title = "♥ " + title
	}
	if i.current {
		title = "▶ " + title
	}
	return title
}
func (i trackItem) Description() string {
	desc := i.track.ArtistName
	if i.track.AlbumTitle != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.AlbumTitle)
	}
	return fmt.Sprintf("%s • %s", desc, formatter.Clock(i.track.Duration()))
}

func newList(title string, items []list.Item, width, height int) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), width, height)
	l.Title = title
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)
	return l
}

func trackItems(tracks []models.Track, favorite func(models.Track) bool) []list.Item {
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{track: t, favorite: favorite(t)}
	}
	return items
}

func playlistItems(playlists []models.Playlist) []list.Item {
	items := make([]list.Item, len(playlists))
	for i, pl := range playlists {
		items[i] = playlistItem{playlist: pl}
	}
	return items
}
