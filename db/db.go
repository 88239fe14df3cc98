package db

import (
	"context"
	"database/sql"
	"time"

	"gator/models"

	"github.com/cenkalti/backoff/v4"
	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

const queryTimeout = 30 * time.Second

// DB handles all database operations with a shared connection pool
type DB struct {
	db     *sql.DB
	flavor sqlbuilder.Flavor
	now    func() time.Time
}

// Options tunes Open
type Options struct {
	// ConnectTimeout bounds how long Open waits for the database to come up
	ConnectTimeout time.Duration
	// SkipMigrations leaves the schema untouched
	SkipMigrations bool
}

// Open connects to the database at dbUrl (postgres:// or sqlite://),
// retrying the initial ping with exponential backoff, and migrates the
// schema to the latest version.
func Open(ctx context.Context, dbUrl string, opts Options) (*DB, error) {
	b, err := parseURL(dbUrl)
	if err != nil {
		return nil, err
	}

	conn, err := connection(b)
	if err != nil {
		return nil, &models.StorageError{Op: "open", Err: err}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = opts.ConnectTimeout
	if bo.MaxElapsedTime == 0 {
		bo.MaxElapsedTime = 30 * time.Second
	}

	err = backoff.RetryNotify(func() error {
		return conn.PingContext(ctx)
	}, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		log.WithFields(log.Fields{
			"backend": b.name,
			"retry":   next,
			"error":   err,
		}).Warn("Database not reachable, retrying")
	})
	if err != nil {
		conn.Close()
		return nil, &models.StorageError{Op: "connect", Err: err}
	}

	if !opts.SkipMigrations {
		if err := Migrate(dbUrl); err != nil {
			conn.Close()
			return nil, &models.StorageError{Op: "migrate", Err: err}
		}
	}

	log.WithFields(log.Fields{
		"backend": b.name,
		"url":     Redact(dbUrl),
	}).Debug("Database ready")

	return &DB{db: conn, flavor: b.flavor, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// Flavor is the SQL dialect queries are built in
func (db *DB) Flavor() sqlbuilder.Flavor {
	return db.flavor
}

type scanner interface {
	Scan(dest ...any) error
}

var feedColumns = []string{
	"feeds.id",
	"feeds.name",
	"feeds.url",
	"feeds.user_id",
	"feeds.last_fetched_at",
	"feeds.created_at",
	"feeds.updated_at",
}

func scanFeed(s scanner, extra ...any) (models.Feed, error) {
	var feed models.Feed
	var lastFetchedAt sql.NullTime

	dest := append([]any{
		&feed.Id,
		&feed.Name,
		&feed.Url,
		&feed.UserId,
		&lastFetchedAt,
		&feed.CreatedAt,
		&feed.UpdatedAt,
	}, extra...)
	if err := s.Scan(dest...); err != nil {
		return feed, err
	}

	if lastFetchedAt.Valid {
		t := lastFetchedAt.Time.UTC()
		feed.LastFetchedAt = &t
	}
	return feed, nil
}

// Ping checks that the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	if err := db.db.PingContext(ctx); err != nil {
		return mapError("ping", err)
	}
	return nil
}
