package db

import (
	"context"

	"gator/models"
	"gator/query"

	log "github.com/sirupsen/logrus"
)

// GetPosts returns one page of posts joined with their feed, in insertion
// order, narrowed by filters. Offsets past the end yield an empty page.
func (db *DB) GetPosts(ctx context.Context, limit, offset int, filters ...query.FilterStrategy) ([]models.BrowsePost, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	sb := db.flavor.NewSelectBuilder()
	sb.Select(
		"posts.id",
		"posts.title",
		"posts.url",
		"posts.description",
		"posts.published_at",
		"posts.feed_id",
		"posts.created_at",
		"feeds.name",
	).
		From("posts").
		Join("feeds", "posts.feed_id = feeds.id")

	for _, filter := range filters {
		filter.ApplyFilter(sb)
	}

	sb.OrderBy("posts.created_at", "posts.id").Asc()
	sb.Limit(limit).Offset(offset)

	q, args := sb.Build()
	log.WithFields(log.Fields{
		"sql":  q,
		"args": args,
	}).Debug("Generated SQL query")

	rows, err := db.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapError("browse posts", err)
	}
	defer rows.Close()

	posts := []models.BrowsePost{}
	for rows.Next() {
		var post models.BrowsePost
		if err := rows.Scan(
			&post.Id,
			&post.Title,
			&post.Url,
			&post.Description,
			&post.PublishedAt,
			&post.FeedId,
			&post.CreatedAt,
			&post.FeedName,
		); err != nil {
			return nil, mapError("scan post", err)
		}
		posts = append(posts, post)
	}
	return posts, mapError("browse posts", rows.Err())
}

// CountPosts returns the number of stored posts, optionally for one feed
func (db *DB) CountPosts(ctx context.Context, feedId string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	sb := db.flavor.NewSelectBuilder()
	sb.Select("COUNT(*)").From("posts")
	if feedId != "" {
		sb.Where(sb.Equal("posts.feed_id", feedId))
	}

	q, args := sb.Build()
	var count int64
	if err := db.db.QueryRowContext(ctx, q, args...).Scan(&count); err != nil {
		return 0, mapError("count posts", err)
	}
	return count, nil
}
