package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gator/config"
	"gator/rss"

	"github.com/urfave/cli/v2"
)

func fetchCmd() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Fetch and parse a feed without storing anything",
		Description: `Downloads the feed at url and prints the parsed channel and items.
		Useful to check a feed before adding it. Does not touch the database.`,
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "user-agent",
				Usage: "User-Agent header to send",
				Value: config.DefaultUserAgent,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Give up after this long",
				Value: 30 * time.Second,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the parsed feed as JSON",
			},
		},
		Action: func(ctx *cli.Context) error {
			args, err := exactArgs(ctx, "url")
			if err != nil {
				return err
			}

			fetcher := rss.NewFetcher(rss.FetcherConfig{
				UserAgent: ctx.String("user-agent"),
				Timeout:   ctx.Duration("timeout"),
			})
			feed, err := fetcher.FetchFeed(ctx.Context, args[0])
			if err != nil {
				return err
			}

			if ctx.Bool("json") {
				enc := json.NewEncoder(ctx.App.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(feed)
			}
			printParsedFeed(ctx.App.Writer, feed)
			return nil
		},
	}
}

func printParsedFeed(w io.Writer, feed *rss.Feed) {
	fmt.Fprintf(w, "%s\n%s\n%s\n\n", feed.Title, feed.Link, feed.Description)
	for _, item := range feed.Items {
		fmt.Fprintf(w, "* %s\n  %s\n  %s\n", item.Title, item.Link, item.PubDate)
	}
	fmt.Fprintf(w, "\n%d item(s)\n", len(feed.Items))
}
