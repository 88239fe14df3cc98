package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gator/models"

	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
)

type addFeedCommand struct {
	Name string
	URL  string
}

func (addFeedCommand) name() string { return "addfeed" }

func (c addFeedCommand) runAs(ctx context.Context, env *environment, user models.User) error {
	feed, err := env.registry.AddFeed(ctx, user, c.Name, c.URL)
	if err != nil {
		return err
	}

	printFeed(env, feed, user.Name)
	fmt.Fprintf(env.out, "%s now follows %s\n", user.Name, feed.Name)
	return nil
}

func addFeedCmd() *cli.Command {
	return &cli.Command{
		Name:      "addfeed",
		Usage:     "Register a feed and follow it",
		ArgsUsage: "<name> <url>",
		Action: action(func(ctx *cli.Context) (addFeedCommand, error) {
			args, err := exactArgs(ctx, "name", "url")
			if err != nil {
				return addFeedCommand{}, err
			}
			return addFeedCommand{Name: args[0], URL: args[1]}, nil
		}),
	}
}

type feedsCommand struct{}

func (feedsCommand) name() string { return "feeds" }

func (feedsCommand) run(ctx context.Context, env *environment) error {
	all, err := env.registry.Feeds(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Fprintln(env.out, "No feeds registered")
		return nil
	}

	for _, f := range all {
		printFeed(env, f.Feed, f.OwnerName)
	}
	return nil
}

func feedsCmd() *cli.Command {
	return &cli.Command{
		Name:  "feeds",
		Usage: "List every registered feed",
		Action: action(func(ctx *cli.Context) (feedsCommand, error) {
			_, err := exactArgs(ctx)
			return feedsCommand{}, err
		}),
	}
}

type followCommand struct {
	URL string
}

func (followCommand) name() string { return "follow" }

func (c followCommand) runAs(ctx context.Context, env *environment, user models.User) error {
	follow, err := env.registry.Follow(ctx, user, c.URL)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "%s now follows %s\n", follow.UserName, follow.FeedName)
	return nil
}

func followCmd() *cli.Command {
	return &cli.Command{
		Name:        "follow",
		Usage:       "Follow a feed by url",
		Description: `Follows the feed at url. A url nobody has added yet is registered first, named after its host.`,
		ArgsUsage:   "<url>",
		Action: action(func(ctx *cli.Context) (followCommand, error) {
			args, err := exactArgs(ctx, "url")
			if err != nil {
				return followCommand{}, err
			}
			return followCommand{URL: args[0]}, nil
		}),
	}
}

type unfollowCommand struct {
	URL string
}

func (unfollowCommand) name() string { return "unfollow" }

func (c unfollowCommand) runAs(ctx context.Context, env *environment, user models.User) error {
	feed, err := env.registry.Unfollow(ctx, user, c.URL)
	if err != nil {
		return fmt.Errorf("unfollow %s: %w", c.URL, err)
	}
	fmt.Fprintf(env.out, "%s unfollowed %s\n", user.Name, feed.Name)
	return nil
}

func unfollowCmd() *cli.Command {
	return &cli.Command{
		Name:      "unfollow",
		Usage:     "Stop following a feed",
		ArgsUsage: "<url>",
		Action: action(func(ctx *cli.Context) (unfollowCommand, error) {
			args, err := exactArgs(ctx, "url")
			if err != nil {
				return unfollowCommand{}, err
			}
			return unfollowCommand{URL: args[0]}, nil
		}),
	}
}

type followingCommand struct{}

func (followingCommand) name() string { return "following" }

func (followingCommand) runAs(ctx context.Context, env *environment, user models.User) error {
	follows, err := env.registry.Following(ctx, user)
	if err != nil {
		return err
	}
	if len(follows) == 0 {
		fmt.Fprintf(env.out, "%s does not follow any feeds\n", user.Name)
		return nil
	}

	lines := lo.Map(follows, func(f models.FollowedFeed, _ int) string {
		return fmt.Sprintf("* %s (%s)", f.FeedName, f.FeedUrl)
	})
	fmt.Fprintf(env.out, "%s follows:\n%s\n", user.Name, strings.Join(lines, "\n"))
	return nil
}

func followingCmd() *cli.Command {
	return &cli.Command{
		Name:  "following",
		Usage: "List the feeds the current user follows",
		Action: action(func(ctx *cli.Context) (followingCommand, error) {
			_, err := exactArgs(ctx)
			return followingCommand{}, err
		}),
	}
}

type browseCommand struct {
	Offset int
	Filter string
}

func (browseCommand) name() string { return "browse" }

func (c browseCommand) runAs(ctx context.Context, env *environment, user models.User) error {
	result, err := env.registry.Browse(ctx, user, c.Offset, c.Filter)
	if err != nil {
		return err
	}
	if len(result.Posts) == 0 {
		fmt.Fprintln(env.out, "No posts found")
		return nil
	}

	for _, post := range result.Posts {
		fmt.Fprintf(env.out, "%s from %s\n", post.PublishedAt.Local().Format(time.RFC1123), post.FeedName)
		fmt.Fprintf(env.out, "--- %s ---\n", post.Title)
		fmt.Fprintf(env.out, "    %s\n", lo.Substring(strings.TrimSpace(post.Description), 0, 280))
		fmt.Fprintf(env.out, "Link: %s\n", post.Url)
		fmt.Fprintln(env.out, "=====================================")
	}

	if result.Next != nil {
		next := "gator browse " + strconv.Itoa(result.Next.Offset)
		if c.Filter != "" {
			next += " filter " + strconv.Quote(c.Filter)
		}
		fmt.Fprintf(env.out, "Next page: %s\n", next)
	}
	return nil
}

// parseBrowseArgs accepts "[offset] [filter <text>]"
func parseBrowseArgs(args []string) (browseCommand, error) {
	var cmd browseCommand
	usage := func(reason string) error {
		return &usageError{command: "browse", usage: "[offset] [filter <text>]", reason: reason}
	}

	if len(args) > 0 && args[0] != "filter" {
		offset, err := strconv.Atoi(args[0])
		if err != nil || offset < 0 {
			return cmd, usage(fmt.Sprintf("offset must be a non-negative integer, got %q", args[0]))
		}
		cmd.Offset = offset
		args = args[1:]
	}

	if len(args) > 0 {
		if args[0] != "filter" {
			return cmd, usage(fmt.Sprintf("unexpected argument %q", args[0]))
		}
		if len(args) < 2 {
			return cmd, usage("filter needs a search text")
		}
		cmd.Filter = strings.Join(args[1:], " ")
	}
	return cmd, nil
}

func browseCmd() *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "Read posts from your feeds",
		Description: `Shows one page of posts from the feeds you added, oldest first.

		Pass an offset to skip posts and "filter <text>" to only show posts whose
		title, description or feed name contains the text, ignoring case.
		The page size and the step of the next-page hint are set in the
		[browse] section of the config file.`,
		ArgsUsage: "[offset] [filter <text>]",
		Action: action(func(ctx *cli.Context) (browseCommand, error) {
			return parseBrowseArgs(ctx.Args().Slice())
		}),
	}
}

func printFeed(env *environment, feed models.Feed, owner string) {
	fetched := "never"
	if feed.LastFetchedAt != nil {
		fetched = feed.LastFetchedAt.Local().Format(time.RFC1123)
	}
	fmt.Fprintf(env.out, "* %s\n", feed.Name)
	fmt.Fprintf(env.out, "  url:     %s\n", feed.Url)
	fmt.Fprintf(env.out, "  owner:   %s\n", owner)
	fmt.Fprintf(env.out, "  fetched: %s\n", fetched)
}
