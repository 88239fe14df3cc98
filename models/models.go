package models

import "time"

// User is a registered reader
type User struct {
	Id        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Feed is a registered RSS source. LastFetchedAt is nil until the
// scheduler has picked the feed at least once.
type Feed struct {
	Id            string     `json:"id"`
	Name          string     `json:"name"`
	Url           string     `json:"url"`
	UserId        string     `json:"userId"`
	LastFetchedAt *time.Time `json:"lastFetchedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// FeedFollow links a user to a feed
type FeedFollow struct {
	Id        string    `json:"id"`
	UserId    string    `json:"userId"`
	FeedId    string    `json:"feedId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Joined for display
	UserName string `json:"userName,omitempty"`
	FeedName string `json:"feedName,omitempty"`
}

// Post is an ingested feed item. Posts are never updated after insert.
type Post struct {
	Id          int64     `json:"id"`
	Title       string    `json:"title"`
	Url         string    `json:"url"`
	Description string    `json:"description"`
	PublishedAt time.Time `json:"publishedAt"`
	FeedId      string    `json:"feedId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FollowedFeed is a row of a user's following list
type FollowedFeed struct {
	FeedName string `json:"feedName"`
	FeedUrl  string `json:"feedUrl"`
}

// FeedWithOwner is a row of the administrative feed listing
type FeedWithOwner struct {
	Feed      Feed   `json:"feed"`
	OwnerName string `json:"ownerName"`
}

// BrowsePost is a post joined with the name of its feed
type BrowsePost struct {
	Post
	FeedName string `json:"feedName"`
}
