package cmd

import (
	"fmt"

	"gator/config"
	"gator/db"

	"github.com/urfave/cli/v2"
)

var dbUrlFlag = &cli.StringFlag{
	Name:  "db-url",
	Usage: "Database url, defaults to db_url from the configuration file",
}

// migrationTarget picks the --db-url flag over the configuration file
func migrationTarget(ctx *cli.Context) (string, error) {
	if url := ctx.String("db-url"); url != "" {
		return url, nil
	}
	cfg, err := config.Read(ctx.String("config"))
	if err != nil {
		return "", err
	}
	return cfg.DbUrl, nil
}

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:        "migrate",
		Usage:       "Run database migrations",
		Description: `Runs database migrations on the configured database. Every other command does this on connect.`,
		Flags:       []cli.Flag{dbUrlFlag},
		Action: func(ctx *cli.Context) error {
			url, err := migrationTarget(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(ctx.App.Writer, "Database configured: %s\n", db.Redact(url))
			return db.Migrate(url)
		},
	}
}

func rollbackCmd() *cli.Command {
	return &cli.Command{
		Name:        "rollback",
		Usage:       "Rollback database migration",
		Description: `Rolls back the last database migration`,
		Flags:       []cli.Flag{dbUrlFlag},
		Action: func(ctx *cli.Context) error {
			url, err := migrationTarget(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(ctx.App.Writer, "Database configured: %s\n", db.Redact(url))
			return db.Rollback(url)
		},
	}
}
