package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gator/config"
	"gator/models"

	"github.com/cqroot/prompt"
	"github.com/urfave/cli/v2"
)

type registerCommand struct {
	Name string
}

func (registerCommand) name() string { return "register" }

func (c registerCommand) run(ctx context.Context, env *environment) error {
	user, err := env.db.CreateUser(ctx, c.Name)
	if errors.Is(err, models.ErrConflict) {
		return fmt.Errorf("user %s already exists: %w", c.Name, err)
	}
	if err != nil {
		return err
	}

	if err := config.SetUser(env.configPath, user.Name); err != nil {
		return err
	}
	env.cfg.CurrentUserName = user.Name

	fmt.Fprintf(env.out, "User created: %s (%s)\n", user.Name, user.Id)
	return nil
}

func registerCmd() *cli.Command {
	return &cli.Command{
		Name:      "register",
		Usage:     "Create a user and log in as them",
		ArgsUsage: "<name>",
		Action: action(func(ctx *cli.Context) (registerCommand, error) {
			args, err := exactArgs(ctx, "name")
			if err != nil {
				return registerCommand{}, err
			}
			return registerCommand{Name: args[0]}, nil
		}),
	}
}

type loginCommand struct {
	Name string
}

func (loginCommand) name() string { return "login" }

func (c loginCommand) run(ctx context.Context, env *environment) error {
	user, err := env.db.GetUserByName(ctx, c.Name)
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("user %s does not exist: %w", c.Name, err)
	}
	if err != nil {
		return err
	}

	if err := config.SetUser(env.configPath, user.Name); err != nil {
		return err
	}
	env.cfg.CurrentUserName = user.Name

	fmt.Fprintf(env.out, "Logged in as %s\n", user.Name)
	return nil
}

func loginCmd() *cli.Command {
	return &cli.Command{
		Name:      "login",
		Usage:     "Switch the current user",
		ArgsUsage: "<name>",
		Action: action(func(ctx *cli.Context) (loginCommand, error) {
			args, err := exactArgs(ctx, "name")
			if err != nil {
				return loginCommand{}, err
			}
			return loginCommand{Name: args[0]}, nil
		}),
	}
}

type usersCommand struct{}

func (usersCommand) name() string { return "users" }

func (usersCommand) run(ctx context.Context, env *environment) error {
	users, err := env.db.GetUsers(ctx)
	if err != nil {
		return err
	}

	for _, user := range users {
		if user.Name == env.cfg.CurrentUserName {
			fmt.Fprintf(env.out, "* %s (current)\n", user.Name)
			continue
		}
		fmt.Fprintf(env.out, "* %s\n", user.Name)
	}
	return nil
}

func usersCmd() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "List all users",
		Action: action(func(ctx *cli.Context) (usersCommand, error) {
			_, err := exactArgs(ctx)
			return usersCommand{}, err
		}),
	}
}

type resetCommand struct {
	Confirmed bool
}

func (resetCommand) name() string { return "reset" }

func (c resetCommand) run(ctx context.Context, env *environment) error {
	if !c.Confirmed {
		answer, err := prompt.New().Ask("This deletes every user, feed and post. Type 'yes' to continue:").Input("")
		if err != nil {
			return err
		}
		if strings.TrimSpace(strings.ToLower(answer)) != "yes" {
			fmt.Fprintln(env.out, "Reset cancelled")
			return nil
		}
	}

	count, err := env.db.DeleteAllUsers(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.out, "Deleted %d user(s) and all their feeds, follows and posts\n", count)
	return nil
}

func resetCmd() *cli.Command {
	return &cli.Command{
		Name:        "reset",
		Usage:       "Delete all users and their data",
		Description: `Deletes every user. Feeds, follows and posts are removed with them.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Do not ask for confirmation",
				EnvVars: []string{"GATOR_RESET_YES"},
			},
		},
		Action: action(func(ctx *cli.Context) (resetCommand, error) {
			_, err := exactArgs(ctx)
			return resetCommand{Confirmed: ctx.Bool("yes")}, err
		}),
	}
}
