package aggregator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticksCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gator_scheduler_ticks_total",
		Help: "Number of scheduler ticks started",
	})

	fetchFailuresCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gator_feed_fetch_failures_total",
		Help: "Number of feed ingestions that failed, by stage",
	}, []string{"stage"})

	postsInsertedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gator_posts_inserted_total",
		Help: "Number of new posts stored",
	})

	postsSkippedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gator_posts_skipped_total",
		Help: "Number of feed items not stored, by reason",
	}, []string{"reason"})

	ingestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gator_feed_ingest_duration_seconds",
		Help:    "Time spent ingesting one feed, from selection to the last insert",
		Buckets: prometheus.DefBuckets,
	})
)
