package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/sonance/internal/models"
	"github.com/desertthunder/sonance/internal/player"
)

var (
	_ tea.Msg = tracksLoadedMsg{}
	_ tea.Msg = playlistsLoadedMsg{}
)

// tracksLoadedMsg carries a track listing for one view.
type tracksLoadedMsg struct {
	view   View
	title  string
	tracks []models.Track
	err    error
}

type playlistsLoadedMsg struct {
	playlists []models.Playlist
	err       error
}

// favoriteToggledMsg reports the outcome of a favorite add or remove.
type favoriteToggledMsg struct {
	track    models.Track
	favorite bool
	err      error
}

// actionDoneMsg reports the outcome of a playback command run off the update loop.
type actionDoneMsg struct {
	status string
	err    error
}

type playerStateMsg struct {
	state player.State
}

type playerErrorMsg struct {
	event player.ErrorEvent
}

type playerClosedMsg struct{}

type tickMsg time.Time
