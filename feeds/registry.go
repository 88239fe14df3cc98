// Package feeds manages feed registration, follows and browsing on behalf
// of a resolved user.
package feeds

import (
	"context"
	"errors"
	"net/url"

	"gator/models"
	"gator/query"

	log "github.com/sirupsen/logrus"
)

// Store is the persistence the registry needs
type Store interface {
	CreateFeed(ctx context.Context, name, url, userId string) (models.Feed, error)
	GetFeedByUrl(ctx context.Context, url string) (models.Feed, error)
	GetFeeds(ctx context.Context) ([]models.FeedWithOwner, error)
	CreateFeedFollow(ctx context.Context, userId, feedId string) (models.FeedFollow, error)
	GetFeedFollow(ctx context.Context, userId, feedId string) (models.FeedFollow, error)
	DeleteFeedFollow(ctx context.Context, userId, feedId string) error
	GetFeedFollowsForUser(ctx context.Context, userId string) ([]models.FollowedFeed, error)
	GetPosts(ctx context.Context, limit, offset int, filters ...query.FilterStrategy) ([]models.BrowsePost, error)
}

// BrowseConfig controls paging. PageStep is how far the next-page hint
// advances the offset.
type BrowseConfig struct {
	PageSize int
	PageStep int
}

type Registry struct {
	store  Store
	browse BrowseConfig
}

func NewRegistry(store Store, browse BrowseConfig) *Registry {
	if browse.PageSize <= 0 {
		browse.PageSize = 10
	}
	if browse.PageStep <= 0 {
		browse.PageStep = browse.PageSize
	}
	return &Registry{store: store, browse: browse}
}

// AddFeed registers a new feed owned by user, who follows it right away
func (r *Registry) AddFeed(ctx context.Context, user models.User, name, feedUrl string) (models.Feed, error) {
	if err := validateUrl(feedUrl); err != nil {
		return models.Feed{}, err
	}
	return r.store.CreateFeed(ctx, name, feedUrl, user.Id)
}

// Follow makes user follow the feed at feedUrl, registering the feed first
// when nobody has added it yet. If another user registers the same url
// between the lookup and the insert, their feed is followed instead.
func (r *Registry) Follow(ctx context.Context, user models.User, feedUrl string) (models.FeedFollow, error) {
	feed, err := r.store.GetFeedByUrl(ctx, feedUrl)
	if errors.Is(err, models.ErrNotFound) {
		if err := validateUrl(feedUrl); err != nil {
			return models.FeedFollow{}, err
		}

		feed, err = r.store.CreateFeed(ctx, defaultFeedName(feedUrl), feedUrl, user.Id)
		if err == nil {
			// The owner's follow was created with the feed
			return r.store.GetFeedFollow(ctx, user.Id, feed.Id)
		}

		if errors.Is(err, models.ErrConflict) {
			log.WithFields(log.Fields{"url": feedUrl}).Info("Feed registered concurrently, following existing feed")
			feed, err = r.store.GetFeedByUrl(ctx, feedUrl)
		}
	}
	if err != nil {
		return models.FeedFollow{}, err
	}

	return r.store.CreateFeedFollow(ctx, user.Id, feed.Id)
}

// Unfollow removes user's follow of the feed at feedUrl. Both an unknown
// feed and a missing follow return models.ErrNotFound.
func (r *Registry) Unfollow(ctx context.Context, user models.User, feedUrl string) (models.Feed, error) {
	feed, err := r.store.GetFeedByUrl(ctx, feedUrl)
	if err != nil {
		return models.Feed{}, err
	}
	if err := r.store.DeleteFeedFollow(ctx, user.Id, feed.Id); err != nil {
		return models.Feed{}, err
	}
	return feed, nil
}

func (r *Registry) Following(ctx context.Context, user models.User) ([]models.FollowedFeed, error) {
	return r.store.GetFeedFollowsForUser(ctx, user.Id)
}

func (r *Registry) Feeds(ctx context.Context) ([]models.FeedWithOwner, error) {
	return r.store.GetFeeds(ctx)
}

// BrowseResult is one page of posts. Next is set when the page was full
// and another one may follow.
type BrowseResult struct {
	Posts []models.BrowsePost
	Page  query.Page
	Next  *query.Page
}

// Browse returns the page of user's posts starting at offset, optionally
// narrowed by a free-text filter. Pages past the end are empty.
func (r *Registry) Browse(ctx context.Context, user models.User, offset int, filter string) (BrowseResult, error) {
	if offset < 0 {
		return BrowseResult{}, &models.ValidationError{Field: "offset", Value: "negative"}
	}

	page := query.Page{Limit: r.browse.PageSize, Offset: offset}
	posts, err := r.store.GetPosts(ctx, page.Limit, page.Offset,
		&OwnerFilter{UserId: user.Id},
		&TextFilter{Text: filter},
	)
	if err != nil {
		return BrowseResult{}, err
	}

	result := BrowseResult{Posts: posts, Page: page}
	if len(posts) == page.Limit {
		next := page.Next(r.browse.PageStep)
		result.Next = &next
	}
	return result, nil
}

func validateUrl(feedUrl string) error {
	u, err := url.Parse(feedUrl)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &models.ValidationError{Field: "url", Value: feedUrl}
	}
	return nil
}

func defaultFeedName(feedUrl string) string {
	u, err := url.Parse(feedUrl)
	if err != nil || u.Host == "" {
		return feedUrl
	}
	return u.Host
}
