package db_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gator/config"
	"gator/db"
	"gator/feeds"
	"gator/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gator.db")
	store, err := db.Open(context.Background(), "sqlite://"+path, db.Options{ConnectTimeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	for _, url := range []string{"mysql://localhost/gator", "gator.db", "", "sqlite://"} {
		t.Run(url, func(t *testing.T) {
			_, err := db.Open(context.Background(), url, db.Options{})
			var cfgErr *config.ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gator.db")
	for i := 0; i < 2; i++ {
		store, err := db.Open(context.Background(), "sqlite://"+path, db.Options{})
		require.NoError(t, err)
		require.NoError(t, store.Close())
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	store := newTestDB(t)

	kahya, err := store.CreateUser(ctx, "kahya")
	require.NoError(t, err)
	assert.NotEmpty(t, kahya.Id)

	_, err = store.CreateUser(ctx, "kahya")
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = store.CreateUser(ctx, "holgith")
	require.NoError(t, err)

	got, err := store.GetUserByName(ctx, "kahya")
	require.NoError(t, err)
	assert.Equal(t, kahya.Id, got.Id)

	_, err = store.GetUserByName(ctx, "nobody")
	assert.ErrorIs(t, err, models.ErrNotFound)

	users, err := store.GetUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "holgith", users[0].Name)
	assert.Equal(t, "kahya", users[1].Name)
}

func TestCreateFeedFollowsOwner(t *testing.T) {
	ctx := context.Background()
	store := newTestDB(t)

	user, err := store.CreateUser(ctx, "kahya")
	require.NoError(t, err)

	feed, err := store.CreateFeed(ctx, "Hacker News", "https://news.ycombinator.com/rss", user.Id)
	require.NoError(t, err)
	assert.Nil(t, feed.LastFetchedAt)

	follows, err := store.GetFeedFollowsForUser(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, []models.FollowedFeed{{FeedName: "Hacker News", FeedUrl: "https://news.ycombinator.com/rss"}}, follows)

	_, err = store.CreateFeed(ctx, "Other name", "https://news.ycombinator.com/rss", user.Id)
	assert.ErrorIs(t, err, models.ErrConflict)

	all, err := store.GetFeeds(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "kahya", all[0].OwnerName)
	assert.Equal(t, feed.Id, all[0].Feed.Id)

	byUrl, err := store.GetFeedByUrl(ctx, feed.Url)
	require.NoError(t, err)
	assert.Equal(t, feed.Id, byUrl.Id)

	_, err = store.GetFeedByUrl(ctx, "https://unknown.example/rss")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestFollowRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestDB(t)

	owner, err := store.CreateUser(ctx, "owner")
	require.NoError(t, err)
	reader, err := store.CreateUser(ctx, "reader")
	require.NoError(t, err)
	feed, err := store.CreateFeed(ctx, "Blog", "https://blog.example/rss", owner.Id)
	require.NoError(t, err)

	follow, err := store.CreateFeedFollow(ctx, reader.Id, feed.Id)
	require.NoError(t, err)
	assert.Equal(t, "reader", follow.UserName)
	assert.Equal(t, "Blog", follow.FeedName)

	_, err = store.CreateFeedFollow(ctx, reader.Id, feed.Id)
	assert.ErrorIs(t, err, models.ErrConflict)

	got, err := store.GetFeedFollow(ctx, reader.Id, feed.Id)
	require.NoError(t, err)
	assert.Equal(t, follow.Id, got.Id)

	ownerFollow, err := store.GetFeedFollow(ctx, owner.Id, feed.Id)
	require.NoError(t, err)
	assert.NotEmpty(t, ownerFollow.Id)
	assert.Equal(t, "owner", ownerFollow.UserName)

	require.NoError(t, store.DeleteFeedFollow(ctx, reader.Id, feed.Id))

	_, err = store.GetFeedFollow(ctx, reader.Id, feed.Id)
	assert.ErrorIs(t, err, models.ErrNotFound)

	follows, err := store.GetFeedFollowsForUser(ctx, reader.Id)
	require.NoError(t, err)
	assert.Empty(t, follows)

	err = store.DeleteFeedFollow(ctx, reader.Id, feed.Id)
	assert.ErrorIs(t, err, models.ErrNotFound)

	// The owner's follow is untouched
	follows, err = store.GetFeedFollowsForUser(ctx, owner.Id)
	require.NoError(t, err)
	assert.Len(t, follows, 1)
}

func TestCreateFeedFollowMissingFeed(t *testing.T) {
	ctx := context.Background()
	store := newTestDB(t)

	user, err := store.CreateUser(ctx, "kahya")
	require.NoError(t, err)

	_, err = store.CreateFeedFollow(ctx, user.Id, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestNextFeedToFetch(t *testing.T) {
	ctx := context.Background()
	store := newTestDB(t)

	_, err := store.GetNextFeedToFetch(ctx)
	assert.ErrorIs(t, err, models.ErrNotFound)

	user, err := store.CreateUser(ctx, "kahya")
	require.NoError(t, err)

	var created []models.Feed
	for _, url := range []string{"https://a.example/rss", "https://b.example/rss", "https://c.example/rss"} {
		feed, err := store.CreateFeed(ctx, url, url, user.Id)
		require.NoError(t, err)
		created = append(created, feed)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Never-fetched feeds come first, in creation order
	next, err := store.GetNextFeedToFetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, created[0].Id, next.Id)

	require.NoError(t, store.MarkFeedFetched(ctx, created[0].Id, base.Add(2*time.Hour)))
	next, err = store.GetNextFeedToFetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, created[1].Id, next.Id)

	require.NoError(t, store.MarkFeedFetched(ctx, created[1].Id, base.Add(3*time.Hour)))
	require.NoError(t, store.MarkFeedFetched(ctx, created[2].Id, base.Add(1*time.Hour)))

	// All fetched, the oldest stamp wins
	next, err = store.GetNextFeedToFetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, created[2].Id, next.Id)
	require.NotNil(t, next.LastFetchedAt)
	assert.True(t, base.Add(time.Hour).Equal(*next.LastFetchedAt))
}

func TestMarkFeedFetchedNeverMovesBackwards(t *testing.T) {
	ctx := context.Background()
	store := newTestDB(t)

	user, err := store.CreateUser(ctx, "kahya")
	require.NoError(t, err)
	feed, err := store.CreateFeed(ctx, "Blog", "https://blog.example/rss", user.Id)
	require.NoError(t, err)

	later := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.MarkFeedFetched(ctx, feed.Id, later))
	require.NoError(t, store.MarkFeedFetched(ctx, feed.Id, later.Add(-time.Hour)))

	got, err := store.GetFeedByUrl(ctx, feed.Url)
	require.NoError(t, err)
	require.NotNil(t, got.LastFetchedAt)
	assert.True(t, later.Equal(*got.LastFetchedAt), "got %v", got.LastFetchedAt)
}

func TestCreatePostIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestDB(t)

	user, err := store.CreateUser(ctx, "kahya")
	require.NoError(t, err)
	first, err := store.CreateFeed(ctx, "First", "https://first.example/rss", user.Id)
	require.NoError(t, err)
	second, err := store.CreateFeed(ctx, "Second", "https://second.example/rss", user.Id)
	require.NoError(t, err)

	post := models.Post{
		Title:       "I1",
		Url:         "http://a/1",
		Description: "d1",
		PublishedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		FeedId:      first.Id,
	}

	inserted, err := store.CreatePost(ctx, post)
	require.NoError(t, err)
	assert.True(t, inserted)

	post.Title = "changed"
	inserted, err = store.CreatePost(ctx, post)
	require.NoError(t, err)
	assert.False(t, inserted)

	// The same url from another feed is already seen
	post.FeedId = second.Id
	inserted, err = store.CreatePost(ctx, post)
	require.NoError(t, err)
	assert.False(t, inserted)

	count, err := store.CountPosts(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	posts, err := store.GetPosts(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "I1", posts[0].Title)
	assert.Equal(t, "First", posts[0].FeedName)
	assert.True(t, post.PublishedAt.Equal(posts[0].PublishedAt))
}

func TestCreatePostForMissingFeed(t *testing.T) {
	store := newTestDB(t)

	_, err := store.CreatePost(context.Background(), models.Post{
		Title:       "orphan",
		Url:         "http://orphan/1",
		Description: "d",
		PublishedAt: time.Now(),
		FeedId:      "no-such-feed",
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetPostsFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	store := newTestDB(t)

	owner, err := store.CreateUser(ctx, "owner")
	require.NoError(t, err)
	other, err := store.CreateUser(ctx, "other")
	require.NoError(t, err)

	news, err := store.CreateFeed(ctx, "News", "https://news.example/rss", owner.Id)
	require.NoError(t, err)
	elsewhere, err := store.CreateFeed(ctx, "Elsewhere", "https://elsewhere.example/rss", other.Id)
	require.NoError(t, err)

	titles := []string{"Go 1.22 released", "Weather today", "Gardening tips"}
	for i, title := range titles {
		_, err := store.CreatePost(ctx, models.Post{
			Title:       title,
			Url:         "https://news.example/" + title,
			Description: "post " + title,
			PublishedAt: time.Date(2024, 1, 3-i, 0, 0, 0, 0, time.UTC),
			FeedId:      news.Id,
		})
		require.NoError(t, err)
	}
	_, err = store.CreatePost(ctx, models.Post{
		Title:       "Go elsewhere",
		Url:         "https://elsewhere.example/1",
		Description: "not owned",
		PublishedAt: time.Now(),
		FeedId:      elsewhere.Id,
	})
	require.NoError(t, err)

	owned := &feeds.OwnerFilter{UserId: owner.Id}

	t.Run("insertion order", func(t *testing.T) {
		posts, err := store.GetPosts(ctx, 10, 0, owned)
		require.NoError(t, err)
		require.Len(t, posts, 3)
		for i, title := range titles {
			assert.Equal(t, title, posts[i].Title)
		}
	})

	t.Run("case insensitive filter", func(t *testing.T) {
		posts, err := store.GetPosts(ctx, 10, 0, owned, &feeds.TextFilter{Text: "GO 1."})
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, "Go 1.22 released", posts[0].Title)
	})

	t.Run("filter matches description", func(t *testing.T) {
		posts, err := store.GetPosts(ctx, 10, 0, owned, &feeds.TextFilter{Text: "post weather"})
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, "Weather today", posts[0].Title)
	})

	t.Run("filter matches feed name", func(t *testing.T) {
		posts, err := store.GetPosts(ctx, 10, 0, owned, &feeds.TextFilter{Text: "news"})
		require.NoError(t, err)
		assert.Len(t, posts, 3)
	})

	t.Run("pages", func(t *testing.T) {
		page, err := store.GetPosts(ctx, 2, 0, owned)
		require.NoError(t, err)
		assert.Len(t, page, 2)

		page, err = store.GetPosts(ctx, 2, 2, owned)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "Gardening tips", page[0].Title)

		page, err = store.GetPosts(ctx, 2, 100, owned)
		require.NoError(t, err)
		assert.Empty(t, page)
	})
}

func TestDeleteAllUsersCascades(t *testing.T) {
	ctx := context.Background()
	store := newTestDB(t)

	user, err := store.CreateUser(ctx, "kahya")
	require.NoError(t, err)
	feed, err := store.CreateFeed(ctx, "Blog", "https://blog.example/rss", user.Id)
	require.NoError(t, err)
	_, err = store.CreatePost(ctx, models.Post{
		Title: "t", Url: "https://blog.example/1", Description: "d",
		PublishedAt: time.Now(), FeedId: feed.Id,
	})
	require.NoError(t, err)

	count, err := store.DeleteAllUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	all, err := store.GetFeeds(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	posts, err := store.CountPosts(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, posts)

	_, err = store.GetNextFeedToFetch(ctx)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}
