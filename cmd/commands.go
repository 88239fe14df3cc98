package cmd

import (
	"context"
	"fmt"
	"strings"

	"gator/models"

	"github.com/urfave/cli/v2"
)

// command is a parsed invocation with typed arguments
type command interface {
	name() string
}

// globalCommand runs without a logged in user
type globalCommand interface {
	command
	run(ctx context.Context, env *environment) error
}

// userCommand acts on behalf of the current user
type userCommand interface {
	command
	runAs(ctx context.Context, env *environment, user models.User) error
}

// dispatch runs cmd, resolving the current user first when it needs one
func dispatch(ctx context.Context, env *environment, cmd command) error {
	switch c := cmd.(type) {
	case userCommand:
		user, err := resolveCurrentUser(ctx, env)
		if err != nil {
			return err
		}
		return c.runAs(ctx, env, user)
	case globalCommand:
		return c.run(ctx, env)
	default:
		return fmt.Errorf("command %s cannot be dispatched", cmd.name())
	}
}

// action parses the invocation before touching config or the database, so
// malformed invocations fail fast.
func action[C command](parse func(ctx *cli.Context) (C, error)) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		cmd, err := parse(ctx)
		if err != nil {
			return err
		}

		env, err := openEnvironment(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return dispatch(ctx.Context, env, cmd)
	}
}

// usageError reports a malformed invocation
type usageError struct {
	command string
	usage   string
	reason  string
	// Err is the underlying cause, if any
	Err error
}

func (e *usageError) Error() string {
	return fmt.Sprintf("%s: %s\nusage: gator %s %s", e.command, e.reason, e.command, e.usage)
}

func (e *usageError) Unwrap() error { return e.Err }

// exactArgs checks that ctx carries exactly the named positional arguments
func exactArgs(ctx *cli.Context, names ...string) ([]string, error) {
	args := ctx.Args().Slice()
	if len(args) != len(names) {
		usage := make([]string, len(names))
		for i, n := range names {
			usage[i] = "<" + n + ">"
		}
		return nil, &usageError{
			command: ctx.Command.Name,
			usage:   strings.Join(usage, " "),
			reason:  fmt.Sprintf("expected %d argument(s), got %d", len(names), len(args)),
		}
	}
	return args, nil
}
