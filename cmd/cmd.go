// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/reelx/internal/formatter"
	"github.com/urfave/cli/v3"
)

const version = "0.3.0"

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "reelx",
		Usage:   "MagicStream movie client with session refresh",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("REELX_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
			&cli.BoolFlag{
				Name:  "trace",
				Usage: "Print session refresh events",
			},
		},
		Before:   r.configure,
		After:    r.close,
		Commands: r.register(),
	}
}

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format (text, csv, markdown, json)",
		Value:   formatter.FormatText,
	}
}

func jsonFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output raw JSON",
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the configuration file and local database",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write the default configuration to the --config path",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles account and session operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Account and session management",
		Before: r.connect,
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in and store the session cookies",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Usage:    "Account email",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "Account password",
						Sources:  cli.EnvVars("REELX_PASSWORD"),
						Required: true,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Log out and forget the session",
				Action: r.AuthLogout,
			},
			{
				Name:  "register",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "first-name", Usage: "First name", Required: true},
					&cli.StringFlag{Name: "last-name", Usage: "Last name", Required: true},
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Account email", Required: true},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "Account password",
						Sources:  cli.EnvVars("REELX_PASSWORD"),
						Required: true,
					},
					&cli.StringFlag{Name: "role", Usage: "Account role (USER or ADMIN)", Value: "USER"},
					&cli.StringFlag{Name: "genres", Usage: "Comma separated favorite genre names"},
				},
				Action: r.AuthRegister,
			},
			{
				Name:   "status",
				Usage:  "Show API health and the stored session",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.AuthStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Refresh the access cookie",
				Action: r.AuthRefresh,
			},
			{
				Name:  "import-cookies",
				Usage: "Import session cookies from a browser 'Copy as cURL' command",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command string (copied from browser DevTools)",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to file containing cURL command",
					},
				},
				Action: r.AuthImportCookies,
			},
		},
	}
}

// moviesCommand handles movie browsing and reviews
func moviesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "movies",
		Aliases: []string{"m"},
		Usage:   "Browse, add and review movies",
		Before:  r.connect,
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all movies",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "genre", Aliases: []string{"g"}, Usage: "Only movies in this genre"},
					formatFlag(),
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write to file instead of stdout"},
				},
				Action: r.MoviesList,
			},
			{
				Name:  "get",
				Usage: "Show a movie",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "imdb-id"},
				},
				Flags: []cli.Flag{
					jsonFlag(),
					&cli.StringFlag{Name: "poster", Usage: "Download the poster image to this file"},
				},
				Action: r.MoviesGet,
			},
			{
				Name:  "add",
				Usage: "Add a movie",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "imdb-id", Usage: "IMDb id", Required: true},
					&cli.StringFlag{Name: "title", Usage: "Title", Required: true},
					&cli.StringFlag{Name: "poster", Usage: "Poster image URL", Required: true},
					&cli.StringFlag{Name: "youtube-id", Usage: "Trailer YouTube id", Required: true},
					&cli.StringFlag{Name: "genres", Usage: "Comma separated genre names", Required: true},
				},
				Action: r.MoviesAdd,
			},
			{
				Name:   "genres",
				Usage:  "List genres",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.MoviesGenres,
			},
			{
				Name:  "recommended",
				Usage: "Movies recommended for the logged in user",
				Flags: []cli.Flag{
					formatFlag(),
				},
				Action: r.MoviesRecommended,
			},
			{
				Name:  "review",
				Usage: "Submit an admin review",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "imdb-id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "review", Aliases: []string{"r"}, Usage: "Review text", Required: true},
				},
				Action: r.MoviesReview,
			},
			{
				Name:      "fetch",
				Usage:     "Fetch many movies concurrently",
				ArgsUsage: "[imdb-id...]",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Concurrent workers", Value: 4},
					&cli.FloatFlag{Name: "rate", Usage: "Requests per second", Value: 5},
					&cli.BoolFlag{Name: "cache", Usage: "Store fetched movies in the local cache"},
					formatFlag(),
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write fetched movies to file"},
				},
				Action: r.MoviesFetch,
			},
			{
				Name:  "cached",
				Usage: "List movies in the local cache",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "genre", Aliases: []string{"g"}, Usage: "Only movies in this genre"},
					jsonFlag(),
				},
				Action: r.MoviesCached,
			},
		},
	}
}

func streamCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "stream",
		Usage:  "Open a trailer in the browser",
		Before: r.connect,
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "youtube-id"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "movie", Usage: "Look up the trailer of this IMDb id"},
			&cli.BoolFlag{Name: "print", Usage: "Print the URL instead of opening it"},
		},
		Action: r.Stream,
	}
}

// apiCommand handles direct API calls and dump
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "api",
		Usage:  "Direct calls to the movie API",
		Before: r.connect,
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
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
				Usage: "Snapshot of health, movies, genres and recommendations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
					&cli.StringFlag{
						Name:  "save",
						Usage: "Also write the dump to this file",
					},
				},
				Action: r.APIDump,
			},
		},
	}
}
