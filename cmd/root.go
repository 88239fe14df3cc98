package cmd

import (
	"gator/config"

	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "gator",
		Usage: "An RSS feed aggregator for the command line",
		Description: `Gator collects RSS feeds into a database and lets you browse
		their posts from the terminal.

		Register a user, add or follow a few feeds, then leave "gator agg 1m"
		running in a terminal to collect posts. Use "gator browse" to read them.

		Settings live in a TOML file (default ~/.gatorconfig.toml), created with
		"gator init". Flags can generally be set via environment variables, e.g.:

		--config => GATOR_CONFIG=/etc/gator.toml
		--log-level => GATOR_LOG_LEVEL=debug
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   config.DefaultPath(),
				Usage:   "Path to the configuration file",
				EnvVars: []string{"GATOR_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"GATOR_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Usage:   "Log format (text or json)",
				EnvVars: []string{"GATOR_LOG_FORMAT"},
			},
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "Write logs to this file, rotated by size, instead of stderr",
				EnvVars: []string{"GATOR_LOG_FILE"},
			},
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			initCmd(),
			registerCmd(),
			loginCmd(),
			usersCmd(),
			resetCmd(),
			addFeedCmd(),
			feedsCmd(),
			followCmd(),
			unfollowCmd(),
			followingCmd(),
			browseCmd(),
			aggCmd(),
			fetchCmd(),
			migrateCmd(),
			rollbackCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}
