package cmd

import (
	"context"
	"fmt"
	"io"

	"gator/config"
	"gator/db"
	"gator/feeds"
	"gator/models"

	"github.com/urfave/cli/v2"
)

// environment carries what every command needs once config is loaded
type environment struct {
	configPath string
	cfg        *config.Config
	db         *db.DB
	registry   *feeds.Registry
	out        io.Writer
}

func openEnvironment(ctx *cli.Context) (*environment, error) {
	path := ctx.String("config")
	cfg, err := config.Read(path)
	if err != nil {
		return nil, err
	}

	store, err := db.Open(ctx.Context, cfg.DbUrl, db.Options{})
	if err != nil {
		return nil, err
	}

	return &environment{
		configPath: path,
		cfg:        cfg,
		db:         store,
		registry: feeds.NewRegistry(store, feeds.BrowseConfig{
			PageSize: cfg.Browse.PageSize,
			PageStep: cfg.Browse.PageStep,
		}),
		out: ctx.App.Writer,
	}, nil
}

func (env *environment) Close() error {
	return env.db.Close()
}

// resolveCurrentUser looks up the user named in the config file
func resolveCurrentUser(ctx context.Context, env *environment) (models.User, error) {
	name := env.cfg.CurrentUserName
	if name == "" {
		return models.User{}, models.ErrNotLoggedIn
	}

	user, err := env.db.GetUserByName(ctx, name)
	if err != nil {
		return models.User{}, fmt.Errorf("resolve current user %q: %w", name, err)
	}
	return user, nil
}
