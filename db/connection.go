package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gator/config"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// backend describes how to reach one kind of database from a db_url
type backend struct {
	name       string
	driver     string
	dsn        string
	migrateURL string
	flavor     sqlbuilder.Flavor
}

func parseURL(dbUrl string) (backend, error) {
	switch {
	case strings.HasPrefix(dbUrl, "postgres://"), strings.HasPrefix(dbUrl, "postgresql://"):
		return backend{
			name:       "postgres",
			driver:     "postgres",
			dsn:        dbUrl,
			migrateURL: dbUrl,
			flavor:     sqlbuilder.PostgreSQL,
		}, nil
	case strings.HasPrefix(dbUrl, "sqlite://"):
		path := strings.TrimPrefix(dbUrl, "sqlite://")
		if path == "" {
			return backend{}, &config.ConfigError{Key: "db_url", Err: errors.New("sqlite url needs a file path")}
		}
		return backend{
			name:   "sqlite",
			driver: "sqlite",
			// Enable foreign keys and WAL mode
			dsn:        fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path),
			migrateURL: "sqlite://" + path,
			flavor:     sqlbuilder.SQLite,
		}, nil
	default:
		return backend{}, &config.ConfigError{Key: "db_url", Err: fmt.Errorf("unsupported database url %q, expected postgres:// or sqlite://", Redact(dbUrl))}
	}
}

func connection(b backend) (*sql.DB, error) {
	db, err := sql.Open(b.driver, b.dsn)
	if err != nil {
		return nil, err
	}

	if b.driver == "sqlite" {
		db.SetMaxOpenConns(1) // SQLite only supports one writer at a time
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
	}
	db.SetConnMaxLifetime(time.Hour) // Recreate connections after an hour
	db.SetConnMaxIdleTime(time.Hour) // Close idle connections after an hour

	return db, nil
}

// Redact hides everything after the scheme so passwords never reach the logs
func Redact(dbUrl string) string {
	if i := strings.Index(dbUrl, "://"); i >= 0 {
		return dbUrl[:i+3] + "..."
	}
	if len(dbUrl) > 12 {
		return dbUrl[:12] + "..."
	}
	return dbUrl
}
