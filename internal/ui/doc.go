// Package ui implements an interactive terminal music player using bubbletea's Elm architecture.
//
// The TUI has four tabbed list views:
//  1. [LibraryView] : Catalog tracks, replaced by discovery results after a / search
//  2. [FavoritesView] : The user's favorite tracks
//  3. [PlaylistsView] : User playlists; enter opens [PlaylistTracksView]
//  4. [QueueView] : The player queue with the current entry marked
//
// A now-playing bar under the list is driven by [player.Subscription] events, with a periodic tick
// refreshing the playhead. Playback and network calls run as commands so the update loop never blocks.
//
// If the session expires the program quits and [Run] returns shared.ErrSessionExpired.
package ui
