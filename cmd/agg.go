package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gator/aggregator"
	"gator/config"
	"gator/rss"
	"gator/server"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

type aggCommand struct {
	Interval    time.Duration
	MetricsAddr string
}

func (aggCommand) name() string { return "agg" }

func (c aggCommand) run(ctx context.Context, env *environment) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher := rss.NewFetcher(rss.FetcherConfig{
		UserAgent:    env.cfg.Scheduler.UserAgent,
		Timeout:      env.cfg.FetchTimeout(),
		MaxBodyBytes: env.cfg.Scheduler.MaxBodyBytes,
	})
	scheduler, err := aggregator.New(env.db, fetcher, aggregator.Config{
		Interval:     c.Interval,
		FetchTimeout: env.cfg.FetchTimeout(),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(env.out, "Collecting feeds every %s\n", c.Interval)

	var wg sync.WaitGroup
	if c.MetricsAddr != "" {
		app := server.Server(&server.ServerConfig{Database: env.db})

		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Infof("Serving metrics on %s", c.MetricsAddr)
			if err := app.Listen(c.MetricsAddr); err != nil {
				log.Errorf("Metrics server stopped: %s", err)
			}
		}()

		defer func() {
			if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
				log.Errorf("Failed to shut down metrics server: %s", err)
			}
			wg.Wait()
		}()
	}

	if err := scheduler.Run(ctx); err != nil {
		return err
	}

	// ctx is done by now
	total, err := env.db.CountPosts(context.Background(), "")
	if err != nil {
		log.Warnf("Failed to count posts: %s", err)
	} else {
		fmt.Fprintf(env.out, "Stopped collecting, %d post(s) stored\n", total)
	}
	return nil
}

func aggCmd() *cli.Command {
	return &cli.Command{
		Name:  "agg",
		Usage: "Collect posts from registered feeds until interrupted",
		Description: `Fetches one feed per interval, always the one that was fetched least
		recently, and stores its new posts. Runs until interrupted with Ctrl-C.

		The interval is a number followed by ms, s, m or h, e.g. 30s or 1m.
		Be gentle with the servers you poll.`,
		ArgsUsage: "<interval>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "Serve /metrics and /healthz on this address, e.g. :9090",
				EnvVars: []string{"GATOR_METRICS_ADDR"},
			},
		},
		Action: action(func(ctx *cli.Context) (aggCommand, error) {
			args, err := exactArgs(ctx, "interval")
			if err != nil {
				return aggCommand{}, err
			}
			interval, err := config.ParseInterval(args[0])
			if err != nil {
				return aggCommand{}, &usageError{command: "agg", usage: "<interval>", reason: err.Error(), Err: err}
			}

			// Progress is reported through logs
			if !ctx.IsSet("log-level") && !log.IsLevelEnabled(log.InfoLevel) {
				log.SetLevel(log.InfoLevel)
			}
			return aggCommand{Interval: interval, MetricsAddr: ctx.String("metrics-addr")}, nil
		}),
	}
}
