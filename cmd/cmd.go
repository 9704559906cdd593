// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/h4nsec/SpotiPlay/internal/formatter"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   defaultConfigPath,
	}
}

// setupCommand handles setup operations for the database and configuration file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{Name: "rollback", Usage: "Revert the most recent migration instead"},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write a config.toml template",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
		},
	}
}

// spotifyCommand handles Spotify operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account operations",
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Authenticate with Spotify using OAuth2",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SpotifyAuth,
			},
			{
				Name:  "playlists",
				Usage: "List your Spotify playlists (append targets)",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of playlists to return (defaults to playlist.list_limit)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.SpotifyPlaylists,
			},
			{
				Name:   "me",
				Usage:  "Show the authenticated Spotify user",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SpotifyMe,
			},
		},
	}
}

// setlistCommand handles setlist parsing, resolution and import.
func setlistCommand(r *Runner) *cli.Command {
	urlArg := []cli.Argument{&cli.StringArg{Name: "url", UsageText: "setlist.fm page URL"}}

	return &cli.Command{
		Name:    "setlist",
		Aliases: []string{"sl"},
		Usage:   "Resolve setlist.fm setlists into Spotify tracks",
		Commands: []*cli.Command{
			{
				Name:      "parse",
				Usage:     "Fetch a setlist page and print the artist and songs",
				Arguments: urlArg,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SetlistParse,
			},
			{
				Name:      "resolve",
				Usage:     "Search Spotify for every song of a setlist",
				Arguments: urlArg,
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: " + strings.Join(formatter.Formats, ", "),
						Value:   formatter.FormatText,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to a file instead of stdout",
					},
					&cli.IntFlag{
						Name:  "max",
						Usage: "Candidates per song (defaults to resolver.max_candidates)",
					},
				},
				Action: r.SetlistResolve,
			},
			{
				Name:      "import",
				Usage:     "Create a playlist from a setlist or append it to an existing playlist",
				Arguments: urlArg,
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "Name of the playlist to create",
					},
					&cli.StringFlag{
						Name:  "playlist-id",
						Usage: "ID of the playlist to append to",
					},
					&cli.StringSliceFlag{
						Name:    "track",
						Aliases: []string{"t"},
						Usage:   "Track URI, ID, or open.spotify.com link to add (repeatable); defaults to the first candidate of every song",
					},
					&cli.BoolFlag{
						Name:    "interactive",
						Aliases: []string{"i"},
						Usage:   "Pick candidates in the terminal UI",
					},
					&cli.BoolFlag{
						Name:  "private",
						Usage: "Create the playlist as private",
					},
				},
				Action: r.SetlistImport,
			},
		},
	}
}

// historyCommand lists recorded imports.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List past setlist imports",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of imports to show",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "artist",
				Usage: "Only show imports of this artist",
			},
			&cli.StringFlag{
				Name:  "playlist-id",
				Usage: "Only show imports into this playlist",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}

// serveCommand runs the web application.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the setlist import web application",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Address to listen on (defaults to server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on (defaults to server.port)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive setlist import.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "tui",
		Aliases:   []string{"interactive", "ui"},
		Usage:     "Launch interactive TUI for setlist import",
		Arguments: []cli.Argument{&cli.StringArg{Name: "url", UsageText: "setlist.fm page URL"}},
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "Name of the playlist to create",
			},
			&cli.StringFlag{
				Name:  "playlist-id",
				Usage: "ID of the playlist to append to",
			},
		},
		Action: r.TUI,
	}
}
