// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/sonance/internal/tasks"
	"github.com/urfave/cli/v3"
)

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output raw JSON",
	}
}

func pageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of items to return",
			Value: 50,
		},
		&cli.IntFlag{
			Name:  "offset",
			Usage: "Number of items to skip",
		},
		jsonFlag(),
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles local configuration and storage.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write the example configuration file",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:   "settings",
				Usage:  "List locally stored settings",
				Action: r.SetupSettings,
			},
		},
	}
}

func emailFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "email",
		Aliases:  []string{"e"},
		Usage:    "Account email",
		Sources:  cli.EnvVars("SONANCE_EMAIL"),
		Required: true,
	}
}

func passwordFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "password",
		Aliases:  []string{"p"},
		Usage:    "Account password",
		Sources:  cli.EnvVars("SONANCE_PASSWORD"),
		Required: true,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Sign in and store the access token",
				Flags:  []cli.Flag{emailFlag(), passwordFlag()},
				Action: r.AuthLogin,
			},
			{
				Name:  "register",
				Usage: "Create an account",
				Flags: []cli.Flag{
					emailFlag(),
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Usage:    "Display name",
						Required: true,
					},
					passwordFlag(),
				},
				Action: r.AuthRegister,
			},
			{
				Name:   "logout",
				Usage:  "Sign out and forget the stored token",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the signed-in user and token expiry",
				Action: r.AuthStatus,
			},
		},
	}
}

// libraryCommand browses the catalog.
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Browse artists, albums and tracks",
		Commands: []*cli.Command{
			{
				Name:   "artists",
				Usage:  "List artists",
				Flags:  pageFlags(),
				Action: r.LibraryArtists,
			},
			{
				Name:  "artist",
				Usage: "Show an artist and their albums",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.LibraryArtist,
			},
			{
				Name:   "albums",
				Usage:  "List albums",
				Flags:  pageFlags(),
				Action: r.LibraryAlbums,
			},
			{
				Name:  "album",
				Usage: "Show an album with its tracks",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.LibraryAlbum,
			},
			{
				Name:  "tracks",
				Usage: "List tracks",
				Flags: append(pageFlags(),
					&cli.StringFlag{
						Name:    "search",
						Aliases: []string{"s"},
						Usage:   "Filter by title text",
					},
					&cli.StringFlag{
						Name:  "artist",
						Usage: "Filter by artist ID",
					},
					&cli.StringFlag{
						Name:  "album",
						Usage: "Filter by album ID",
					},
				),
				Action: r.LibraryTracks,
			},
		},
	}
}

// favoritesCommand manages favorite tracks.
func favoritesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "favorites",
		Aliases: []string{"fav"},
		Usage:   "Manage favorite tracks",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List favorite tracks",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.FavoritesList,
			},
			{
				Name:  "add",
				Usage: "Mark a track as favorite",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.FavoritesAdd,
			},
			{
				Name:  "remove",
				Usage: "Remove a track from favorites",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.FavoritesRemove,
			},
		},
	}
}

// playlistsCommand manages and exports playlists.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Manage playlists",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List playlists",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.PlaylistsList,
			},
			{
				Name:  "show",
				Usage: "Show a playlist with its tracks",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.PlaylistsShow,
			},
			{
				Name:  "create",
				Usage: "Create a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "Playlist description",
					},
				},
				Action: r.PlaylistsCreate,
			},
			{
				Name:  "rename",
				Usage: "Rename a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "name"},
				},
				Action: r.PlaylistsRename,
			},
			{
				Name:  "delete",
				Usage: "Delete a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.PlaylistsDelete,
			},
			{
				Name:  "add",
				Usage: "Add a track to a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "track"},
				},
				Action: r.PlaylistsAdd,
			},
			{
				Name:  "remove",
				Usage: "Remove a track from a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "track"},
				},
				Action: r.PlaylistsRemove,
			},
			{
				Name:      "export",
				Usage:     "Export playlists to files (all playlists when no IDs are given)",
				ArgsUsage: "[playlist-id...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: " + strings.Join(tasks.Formats, ", "),
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: sonance_export_{timestamp})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent export workers (max 10)",
						Value: 5,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Playlist fetches per second",
						Value: 5,
					},
				},
				Action: r.PlaylistsExport,
			},
		},
	}
}

// discoverCommand runs a natural-language search.
func discoverCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "discover",
		Aliases:   []string{"search"},
		Usage:     "Natural-language track search",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of tracks to return",
				Value: 20,
			},
			jsonFlag(),
		},
		Action: r.Discover,
	}
}

// recommendCommand runs the recommendation agent.
func recommendCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "recommend",
		Usage:     "Ask the recommendation agent for tracks",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "steps",
				Usage: "Show the agent's tool calls",
			},
			jsonFlag(),
		},
		Action: r.Recommend,
	}
}

// embeddingsCommand prints the embedding projection.
func embeddingsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "embeddings",
		Usage: "Show the track embedding projection",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of points",
			},
			jsonFlag(),
		},
		Action: r.Embeddings,
	}
}

// playCommand plays tracks without the TUI.
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "Play tracks in order until the queue ends (Ctrl-C stops)",
		ArgsUsage: "<track-id...>",
		Flags: []cli.Flag{
			&cli.FloatFlag{
				Name:  "volume",
				Usage: "Volume between 0 and 1 (persisted)",
			},
		},
		Action: r.Play,
	}
}

// apiCommand handles direct API calls and the library dump.
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the music API",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Authenticated GET, prints the JSON response",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "compact",
						Usage: "Print JSON on a single line",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Authenticated POST with a JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
			{
				Name:  "dump",
				Usage: "Fetch every library endpoint",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Save dump to " + dumpFile,
						Value: false,
					},
				},
				Action: r.APIDump,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive player",
		Action:  r.TUI,
	}
}
