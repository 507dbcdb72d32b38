// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output raw JSON",
	}
}

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "email",
			Aliases: []string{"e"},
			Usage:   "Account email (prompted when missing)",
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"p"},
			Usage:   "Account password (prompted when missing)",
			Sources: cli.EnvVars("COURSEX_PASSWORD"),
		},
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml populated with defaults",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the token database and run migrations",
				Action: r.SetupDatabase,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Revert the most recent migration instead",
					},
				},
			},
		},
	}
}

// authCommand handles session operations.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the signed-in session",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Sign in and remember the session token",
				Flags:  credentialFlags(),
				Action: r.AuthLogin,
			},
			{
				Name:  "register",
				Usage: "Create an account and sign in",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "Full name (prompted when missing)",
					},
				}, credentialFlags()...),
				Action: r.AuthRegister,
			},
			{
				Name:   "logout",
				Usage:  "Forget the session token",
				Action: r.AuthLogout,
			},
			{
				Name:    "whoami",
				Aliases: []string{"status"},
				Usage:   "Show the signed-in user",
				Flags:   []cli.Flag{jsonFlag()},
				Action:  r.AuthWhoami,
			},
			{
				Name:   "refresh",
				Usage:  "Re-validate the stored session token",
				Action: r.AuthRefresh,
			},
			{
				Name:   "origins",
				Usage:  "List services with a stored session token",
				Action: r.AuthOrigins,
			},
		},
	}
}

// coursesCommand handles catalog operations.
func coursesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "courses",
		Aliases: []string{"course", "c"},
		Usage:   "Browse the course catalog",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List every course",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.CoursesList,
			},
			{
				Name:      "show",
				Usage:     "Show a course with its classes",
				Arguments: []cli.Argument{&cli.StringArg{Name: "slug"}},
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.CoursesShow,
			},
			{
				Name:      "open",
				Usage:     "Play a class video in the browser",
				Arguments: []cli.Argument{&cli.StringArg{Name: "slug"}},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "class",
						Usage: "Class ID to play (default: the first class)",
					},
				},
				Action: r.CoursesOpen,
			},
			{
				Name:      "export",
				Usage:     "Export courses with their classes and ratings",
				ArgsUsage: "[slug...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Export the whole catalog",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, markdown, txt",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: coursex_export_{epoch})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent writers",
						Value: 5,
					},
				},
				Action: r.CoursesExport,
			},
		},
	}
}

// ratingsCommand handles rating operations.
func ratingsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "ratings",
		Aliases: []string{"rating", "r"},
		Usage:   "View and manage course ratings",
		Commands: []*cli.Command{
			{
				Name:      "stats",
				Usage:     "Show a course's rating aggregate and your vote",
				Arguments: []cli.Argument{&cli.StringArg{Name: "slug"}},
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.RatingsStats,
			},
			{
				Name:  "rate",
				Usage: "Rate a course from 1 to 5 stars",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "slug"},
					&cli.StringArg{Name: "stars"},
				},
				Action: r.RatingsRate,
			},
			{
				Name:      "delete",
				Usage:     "Remove your rating from a course",
				Arguments: []cli.Argument{&cli.StringArg{Name: "slug"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Skip the confirmation prompt",
					},
				},
				Action: r.RatingsDelete,
			},
		},
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the course service",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Direct GET, prints the raw response",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "auth",
						Usage: "Send the stored session token",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive browsing and rating.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive course browser",
		Action:  r.TUI,
	}
}
