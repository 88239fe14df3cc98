// Package aggregator periodically pulls the least recently fetched feed and
// stores its new items as posts.
package aggregator

import (
	"context"
	"errors"
	"sync"
	"time"

	"gator/config"
	"gator/models"
	"gator/rss"

	log "github.com/sirupsen/logrus"
)

// Store is the persistence the scheduler needs
type Store interface {
	GetNextFeedToFetch(ctx context.Context) (models.Feed, error)
	MarkFeedFetched(ctx context.Context, feedId string, at time.Time) error
	CreatePost(ctx context.Context, post models.Post) (bool, error)
}

// Fetcher retrieves a raw feed document
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Config struct {
	// Interval between ticks
	Interval time.Duration
	// FetchTimeout bounds a single feed download
	FetchTimeout time.Duration
	// Now is the clock used for fetch stamps, time.Now when nil
	Now func() time.Time
}

// Scheduler processes exactly one feed per tick. Ticks fire on a fixed
// period whether or not the previous tick has finished, so ingestion of
// different feeds can overlap. Selecting and stamping a feed is serialized,
// which keeps overlapping ticks from picking the same feed.
type Scheduler struct {
	store        Store
	fetcher      Fetcher
	interval     time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	selectMu sync.Mutex
	wg       sync.WaitGroup
}

func New(store Store, fetcher Fetcher, cfg Config) (*Scheduler, error) {
	if cfg.Interval <= 0 {
		return nil, &config.ConfigError{Key: "interval", Err: errors.New("must be positive")}
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Scheduler{
		store:        store,
		fetcher:      fetcher,
		interval:     cfg.Interval,
		fetchTimeout: cfg.FetchTimeout,
		now:          cfg.Now,
	}, nil
}

// Run ticks once immediately and then every interval until ctx is done.
// On stop no new tick starts, and Run waits for in-flight ticks to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	log.WithFields(log.Fields{
		"interval":      s.interval,
		"fetch_timeout": s.fetchTimeout,
	}).Info("Collecting feeds")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// In-flight ticks outlive the stop signal so inserts are never cut short
	work := context.WithoutCancel(ctx)

	s.spawn(work)
	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			log.Info("Stopping aggregator, waiting for in-flight ticks")
			s.wg.Wait()
			return nil
		case <-ticker.C:
			s.spawn(work)
		}
	}
}

func (s *Scheduler) spawn(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticksCounter.Inc()

		start := time.Now()
		result, err := s.Tick(ctx)
		if result == nil && err == nil {
			log.Debug("No feeds to fetch")
			return
		}
		ingestDuration.Observe(time.Since(start).Seconds())

		fields := log.Fields{"latency": time.Since(start)}
		if result != nil {
			fields["feed_id"] = result.FeedId
			fields["url"] = result.FeedUrl
			fields["inserted"] = result.Inserted
			fields["duplicates"] = result.Duplicates
			fields["skipped"] = result.Skipped
		}
		if err != nil {
			log.WithFields(fields).WithError(err).Warn("Feed ingestion failed")
			return
		}
		log.WithFields(fields).Info("Feed ingested")
	}()
}

// TickResult summarizes one feed ingestion
type TickResult struct {
	FeedId     string
	FeedUrl    string
	Title      string
	Inserted   int
	Duplicates int
	Skipped    int
}

// Tick selects the least recently fetched feed, stamps it, fetches and
// parses it and stores its items. A nil result and nil error mean there
// was no feed to fetch. Fetch and parse failures end the tick without
// storing posts; the stamp is kept.
func (s *Scheduler) Tick(ctx context.Context) (*TickResult, error) {
	feed, err := s.claimNextFeed(ctx)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	result := &TickResult{FeedId: feed.Id, FeedUrl: feed.Url}
	log.WithFields(log.Fields{
		"feed_id": feed.Id,
		"url":     feed.Url,
	}).Debug("Fetching feed")

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	body, err := s.fetcher.Fetch(fetchCtx, feed.Url)
	cancel()
	if err != nil {
		fetchFailuresCounter.WithLabelValues("fetch").Inc()
		return result, err
	}

	parsed, err := rss.Parse(body)
	if err != nil {
		fetchFailuresCounter.WithLabelValues("parse").Inc()
		return result, err
	}
	result.Title = parsed.Title

	for _, item := range parsed.Items {
		publishedAt, err := rss.ParsePubDate(item.PubDate)
		if err != nil {
			log.WithFields(log.Fields{
				"feed_id": feed.Id,
				"item":    item.Link,
			}).WithError(err).Warn("Skipping item")
			postsSkippedCounter.WithLabelValues("pub_date").Inc()
			result.Skipped++
			continue
		}

		inserted, err := s.store.CreatePost(ctx, models.Post{
			Title:       item.Title,
			Url:         item.Link,
			Description: item.Description,
			PublishedAt: publishedAt,
			FeedId:      feed.Id,
		})
		if err != nil {
			fetchFailuresCounter.WithLabelValues("store").Inc()
			return result, err
		}

		if inserted {
			postsInsertedCounter.Inc()
			result.Inserted++
		} else {
			postsSkippedCounter.WithLabelValues("duplicate").Inc()
			result.Duplicates++
		}
	}

	return result, nil
}

// claimNextFeed picks the next feed and stamps it before any fetch starts
func (s *Scheduler) claimNextFeed(ctx context.Context) (models.Feed, error) {
	s.selectMu.Lock()
	defer s.selectMu.Unlock()

	feed, err := s.store.GetNextFeedToFetch(ctx)
	if err != nil {
		return models.Feed{}, err
	}
	if err := s.store.MarkFeedFetched(ctx, feed.Id, s.now()); err != nil {
		return models.Feed{}, err
	}
	return feed, nil
}
