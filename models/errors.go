package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a user, feed or follow does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on uniqueness violations (user name, feed url, follow pair)
	ErrConflict = errors.New("already exists")
	// ErrNotLoggedIn is returned by user-scoped commands when no user is configured
	ErrNotLoggedIn = errors.New("no user logged in, run register or login first")
)

// FetchError is a transport or HTTP status failure while retrieving a feed
type FetchError struct {
	Url        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Url, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.Url, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError means a feed document could not be turned into a Feed
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse feed: %s: %v", e.Reason, e.Err)
	}
	return "parse feed: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError names a required field that is missing or malformed.
// Channel-level validation failures arrive wrapped in a ParseError.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
	}
	return fmt.Sprintf("missing required field %s", e.Field)
}

// StorageError wraps a failure of the database itself
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
