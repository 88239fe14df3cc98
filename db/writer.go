package db

import (
	"context"
	"time"

	"gator/models"

	log "github.com/sirupsen/logrus"
)

// GetNextFeedToFetch returns the feed fetched longest ago. Feeds that were
// never fetched come first; ties are broken by creation time, then id.
// An empty registry returns models.ErrNotFound.
func (db *DB) GetNextFeedToFetch(ctx context.Context) (models.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	sb := db.flavor.NewSelectBuilder()
	sb.Select(feedColumns...).
		From("feeds").
		OrderBy("feeds.last_fetched_at ASC NULLS FIRST", "feeds.created_at ASC", "feeds.id ASC").
		Limit(1)

	q, args := sb.Build()
	feed, err := scanFeed(db.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		return models.Feed{}, mapError("next feed to fetch", err)
	}
	return feed, nil
}

// MarkFeedFetched stamps feedId as fetched at the given time. The stamp
// never moves backwards: an older time than the stored one is ignored.
func (db *DB) MarkFeedFetched(ctx context.Context, feedId string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	at = at.UTC()
	ub := db.flavor.NewUpdateBuilder()
	ub.Update("feeds").
		Set(
			ub.Assign("last_fetched_at", at),
			ub.Assign("updated_at", at),
		).
		Where(
			ub.Equal("id", feedId),
			ub.Or(ub.IsNull("last_fetched_at"), ub.LessEqualThan("last_fetched_at", at)),
		)

	q, args := ub.Build()
	if _, err := db.db.ExecContext(ctx, q, args...); err != nil {
		return mapError("mark feed fetched", err)
	}
	return nil
}

// CreatePost inserts post unless a post with the same url already exists.
// It reports whether a row was written; duplicates are not an error.
func (db *DB) CreatePost(ctx context.Context, post models.Post) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	createdAt := post.CreatedAt
	if createdAt.IsZero() {
		createdAt = db.now()
	}

	ib := db.flavor.NewInsertBuilder()
	ib.InsertInto("posts").
		Cols("title", "url", "description", "published_at", "feed_id", "created_at").
		Values(post.Title, post.Url, post.Description, post.PublishedAt.UTC(), post.FeedId, createdAt.UTC())
	ib.SQL("ON CONFLICT (url) DO NOTHING")

	q, args := ib.Build()
	res, err := db.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, mapError("create post", err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return false, mapError("create post", err)
	}

	log.WithFields(log.Fields{
		"url":          post.Url,
		"feed_id":      post.FeedId,
		"published_at": post.PublishedAt.Format(time.RFC3339),
		"inserted":     count > 0,
	}).Debug("Creating post")
	return count > 0, nil
}
