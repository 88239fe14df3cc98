package db

import (
	"context"
	"database/sql"
	"time"

	"gator/models"

	"github.com/google/uuid"
	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// CreateFeed inserts a feed owned by userId and follows it on the owner's
// behalf in the same transaction. A duplicate url returns models.ErrConflict.
func (db *DB) CreateFeed(ctx context.Context, name, url, userId string) (models.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	now := db.now()
	feed := models.Feed{
		Id:        uuid.NewString(),
		Name:      name,
		Url:       url,
		UserId:    userId,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Feed{}, mapError("begin create feed", err)
	}
	defer tx.Rollback()

	ib := db.flavor.NewInsertBuilder()
	ib.InsertInto("feeds").
		Cols("id", "name", "url", "user_id", "created_at", "updated_at").
		Values(feed.Id, feed.Name, feed.Url, feed.UserId, feed.CreatedAt, feed.UpdatedAt)
	q, args := ib.Build()
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return models.Feed{}, mapError("create feed", err)
	}

	if _, err := db.insertFollow(ctx, tx, userId, feed.Id, now); err != nil {
		return models.Feed{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Feed{}, mapError("commit create feed", err)
	}

	log.WithFields(log.Fields{
		"feed_id": feed.Id,
		"url":     url,
		"user_id": userId,
	}).Info("Created feed")
	return feed, nil
}

func (db *DB) GetFeedByUrl(ctx context.Context, url string) (models.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	sb := db.flavor.NewSelectBuilder()
	sb.Select(feedColumns...).From("feeds").Where(sb.Equal("feeds.url", url))

	q, args := sb.Build()
	feed, err := scanFeed(db.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		return models.Feed{}, mapError("get feed "+url, err)
	}
	return feed, nil
}

// GetFeeds lists every feed with its owner's name, oldest first
func (db *DB) GetFeeds(ctx context.Context) ([]models.FeedWithOwner, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	sb := db.flavor.NewSelectBuilder()
	sb.Select(append(feedColumns, "users.name")...).
		From("feeds").
		Join("users", "feeds.user_id = users.id").
		OrderBy("feeds.created_at", "feeds.id").Asc()

	q, args := sb.Build()
	rows, err := db.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapError("list feeds", err)
	}
	defer rows.Close()

	feeds := []models.FeedWithOwner{}
	for rows.Next() {
		var owner string
		feed, err := scanFeed(rows, &owner)
		if err != nil {
			return nil, mapError("scan feed", err)
		}
		feeds = append(feeds, models.FeedWithOwner{Feed: feed, OwnerName: owner})
	}
	return feeds, mapError("list feeds", rows.Err())
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (db *DB) insertFollow(ctx context.Context, tx execer, userId, feedId string, now time.Time) (string, error) {
	id := uuid.NewString()

	ib := db.flavor.NewInsertBuilder()
	ib.InsertInto("feed_follows").
		Cols("id", "user_id", "feed_id", "created_at", "updated_at").
		Values(id, userId, feedId, now, now)

	q, args := ib.Build()
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return "", mapError("create follow", err)
	}
	return id, nil
}

// CreateFeedFollow follows feedId for userId and returns the follow with
// the user and feed names joined in. Following twice returns models.ErrConflict.
func (db *DB) CreateFeedFollow(ctx context.Context, userId, feedId string) (models.FeedFollow, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	id, err := db.insertFollow(ctx, db.db, userId, feedId, db.now())
	if err != nil {
		return models.FeedFollow{}, err
	}

	follow, err := db.selectFeedFollow(ctx, func(sb *sqlbuilder.SelectBuilder) string {
		return sb.Equal("feed_follows.id", id)
	})
	if err != nil {
		return models.FeedFollow{}, err
	}

	log.WithFields(log.Fields{
		"user": follow.UserName,
		"feed": follow.FeedName,
	}).Info("Created follow")
	return follow, nil
}

// DeleteFeedFollow removes a follow. A follow that does not exist is an
// error, not a no-op.
func (db *DB) DeleteFeedFollow(ctx context.Context, userId, feedId string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	del := db.flavor.NewDeleteBuilder()
	del.DeleteFrom("feed_follows").Where(
		del.Equal("user_id", userId),
		del.Equal("feed_id", feedId),
	)

	q, args := del.Build()
	res, err := db.db.ExecContext(ctx, q, args...)
	if err != nil {
		return mapError("delete follow", err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return mapError("delete follow", err)
	}
	if count == 0 {
		return mapError("delete follow", sql.ErrNoRows)
	}
	return nil
}

// GetFeedFollow returns userId's follow of feedId with the names joined in
func (db *DB) GetFeedFollow(ctx context.Context, userId, feedId string) (models.FeedFollow, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return db.selectFeedFollow(ctx, func(sb *sqlbuilder.SelectBuilder) string {
		return sb.And(
			sb.Equal("feed_follows.user_id", userId),
			sb.Equal("feed_follows.feed_id", feedId),
		)
	})
}

func (db *DB) selectFeedFollow(ctx context.Context, where func(sb *sqlbuilder.SelectBuilder) string) (models.FeedFollow, error) {
	sb := db.flavor.NewSelectBuilder()
	sb.Select(
		"feed_follows.id",
		"feed_follows.user_id",
		"feed_follows.feed_id",
		"feed_follows.created_at",
		"feed_follows.updated_at",
		"users.name",
		"feeds.name",
	).
		From("feed_follows").
		Join("users", "feed_follows.user_id = users.id").
		Join("feeds", "feed_follows.feed_id = feeds.id")
	sb.Where(where(sb))

	q, args := sb.Build()
	var follow models.FeedFollow
	err := db.db.QueryRowContext(ctx, q, args...).Scan(
		&follow.Id,
		&follow.UserId,
		&follow.FeedId,
		&follow.CreatedAt,
		&follow.UpdatedAt,
		&follow.UserName,
		&follow.FeedName,
	)
	if err != nil {
		return models.FeedFollow{}, mapError("get follow", err)
	}
	return follow, nil
}

// GetFeedFollowsForUser lists the feeds userId follows, in follow order
func (db *DB) GetFeedFollowsForUser(ctx context.Context, userId string) ([]models.FollowedFeed, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	sb := db.flavor.NewSelectBuilder()
	sb.Select("feeds.name", "feeds.url").
		From("feed_follows").
		Join("feeds", "feed_follows.feed_id = feeds.id").
		Where(sb.Equal("feed_follows.user_id", userId)).
		OrderBy("feed_follows.created_at", "feed_follows.id").Asc()

	q, args := sb.Build()
	rows, err := db.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapError("list follows", err)
	}
	defer rows.Close()

	follows := []models.FollowedFeed{}
	for rows.Next() {
		var f models.FollowedFeed
		if err := rows.Scan(&f.FeedName, &f.FeedUrl); err != nil {
			return nil, mapError("scan follow", err)
		}
		follows = append(follows, f)
	}
	return follows, mapError("list follows", rows.Err())
}
