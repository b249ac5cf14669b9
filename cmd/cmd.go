// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:      "casper",
		Usage:     "A desktop companion that plays music from a sentence and reads your calendar",
		Version:   "0.1.0",
		Writer:    r.output,
		ErrWriter: r.output,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("CASPER_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "Path to a .env file with CASPER_* overrides",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before:   r.load,
		After:    r.close,
		Commands: r.register(),
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml if missing, initialize the database and run migrations",
		Action: r.Setup,
		Commands: []*cli.Command{
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// authCommand handles Spotify authentication
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Sign in to Spotify (PKCE) and store the tokens",
		Action: r.Auth,
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Check whether the stored Spotify credential is usable",
				Action: r.AuthStatus,
			},
		},
	}
}

// devicesCommand lists Spotify Connect devices
func devicesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "devices",
		Usage: "List available Spotify playback devices",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Devices,
	}
}

// suggestCommand asks the recommendation gateway for parameters without playing anything
func suggestCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "suggest",
		Usage:     "Show the recommendation parameters derived from text",
		ArgsUsage: "<text>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Suggest,
	}
}

// playCommand runs the full text to playback chain
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "Create a playlist from text and start playback",
		ArgsUsage: "<text>",
		Action:    r.Play,
	}
}

// calendarCommand handles calendar operations
func calendarCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "calendar",
		Aliases: []string{"cal"},
		Usage:   "Calendar operations",
		Commands: []*cli.Command{
			{
				Name:  "today",
				Usage: "List today's events",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "title",
						Usage: "Only events whose title contains this text",
					},
					&cli.BoolFlag{
						Name:  "read",
						Usage: "Read the events out at the configured cadence",
					},
				},
				Action: r.CalendarToday,
			},
			{
				Name:  "add",
				Usage: "Add an event to the local calendar store",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "title",
						Usage:    "Event title",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "start",
						Usage:    `Start time (RFC3339 or "2006-01-02 15:04" local)`,
						Required: true,
					},
					&cli.StringFlag{
						Name:     "end",
						Usage:    `End time (RFC3339 or "2006-01-02 15:04" local)`,
						Required: true,
					},
					&cli.StringFlag{
						Name:  "calendar",
						Usage: "Calendar name",
						Value: "Calendar",
					},
				},
				Action: r.CalendarAdd,
			},
		},
	}
}

// historyCommand exports the music request history
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show or export music request history",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: json, csv, markdown or txt",
				Value:   "txt",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to a file instead of stdout",
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only requests with this status (succeeded or failed)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of requests",
				Value: 50,
			},
		},
		Action: r.History,
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch Casper in the terminal",
		Action:  r.TUI,
	}
}
