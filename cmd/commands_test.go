package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"gator/config"
	"gator/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBrowseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    browseCommand
		wantErr bool
	}{
		{name: "no arguments", args: nil, want: browseCommand{}},
		{name: "offset", args: []string{"20"}, want: browseCommand{Offset: 20}},
		{name: "filter", args: []string{"filter", "go"}, want: browseCommand{Filter: "go"}},
		{name: "offset and filter", args: []string{"10", "filter", "go"}, want: browseCommand{Offset: 10, Filter: "go"}},
		{name: "filter with spaces", args: []string{"filter", "hacker", "news"}, want: browseCommand{Filter: "hacker news"}},
		{name: "negative offset", args: []string{"-1"}, wantErr: true},
		{name: "non-numeric offset", args: []string{"ten"}, wantErr: true},
		{name: "filter without text", args: []string{"filter"}, wantErr: true},
		{name: "offset then junk", args: []string{"10", "go"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBrowseArgs(tt.args)
			if tt.wantErr {
				var usage *usageError
				assert.ErrorAs(t, err, &usage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type harness struct {
	t          *testing.T
	configPath string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("GATOR_DB_URL", "")
	dir := t.TempDir()
	h := &harness{t: t, configPath: filepath.Join(dir, "gator.toml")}

	out, err := h.run("init", "--db-url", "sqlite://"+filepath.Join(dir, "gator.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")
	return h
}

func (h *harness) runContext(ctx context.Context, args ...string) (string, error) {
	var buf bytes.Buffer
	app := RootApp()
	app.Writer = &buf
	app.ErrWriter = &buf
	err := app.RunContext(ctx, append([]string{"gator", "--config", h.configPath}, args...))
	return buf.String(), err
}

func (h *harness) run(args ...string) (string, error) {
	return h.runContext(context.Background(), args...)
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	return out
}

func TestInitRefusesToOverwrite(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("init", "--db-url", "sqlite:///tmp/other.db")
	assert.Error(t, err)

	h.mustRun("init", "--force", "--db-url", "sqlite://"+filepath.Join(t.TempDir(), "other.db"))
}

func TestUserCommands(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("following")
	assert.ErrorIs(t, err, models.ErrNotLoggedIn)

	assert.Contains(t, h.mustRun("register", "kahya"), "User created: kahya")
	assert.Contains(t, h.mustRun("register", "holgith"), "User created: holgith")

	_, err = h.run("register", "kahya")
	assert.ErrorIs(t, err, models.ErrConflict)

	assert.Equal(t, "* holgith (current)\n* kahya\n", h.mustRun("users"))

	assert.Contains(t, h.mustRun("login", "kahya"), "Logged in as kahya")
	assert.Equal(t, "* holgith\n* kahya (current)\n", h.mustRun("users"))

	_, err = h.run("login", "nobody")
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.Contains(t, h.mustRun("reset", "--yes"), "Deleted 2 user(s)")
	assert.Empty(t, h.mustRun("users"))

	_, err = h.run("following")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t)
	h.mustRun("register", "kahya")

	for _, args := range [][]string{
		{"register"},
		{"login", "a", "b"},
		{"addfeed", "only-a-name"},
		{"follow"},
		{"unfollow"},
		{"browse", "latest"},
		{"agg"},
		{"agg", "soon"},
	} {
		t.Run(fmt.Sprint(args), func(t *testing.T) {
			_, err := h.run(args...)
			var usage *usageError
			assert.ErrorAs(t, err, &usage)
		})
	}
}

func TestAggRejectsInterval(t *testing.T) {
	h := newHarness(t)

	for _, interval := range []string{"soon", "0s", "1d", "1.5h"} {
		t.Run(interval, func(t *testing.T) {
			_, err := h.run("agg", interval)
			var usage *usageError
			assert.ErrorAs(t, err, &usage)
			var cfgErr *config.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "interval", cfgErr.Key)
		})
	}
}

func TestFeedCommands(t *testing.T) {
	h := newHarness(t)
	h.mustRun("register", "kahya")

	out := h.mustRun("addfeed", "Hacker News", "https://news.ycombinator.com/rss")
	assert.Contains(t, out, "Hacker News")
	assert.Contains(t, out, "owner:   kahya")
	assert.Contains(t, out, "fetched: never")
	assert.Contains(t, out, "kahya now follows Hacker News")

	_, err := h.run("addfeed", "Again", "https://news.ycombinator.com/rss")
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = h.run("addfeed", "Broken", "not a url")
	var validation *models.ValidationError
	assert.ErrorAs(t, err, &validation)

	h.mustRun("register", "holgith")
	assert.Contains(t, h.mustRun("follow", "https://news.ycombinator.com/rss"), "holgith now follows Hacker News")
	assert.Contains(t, h.mustRun("follow", "https://blog.boot.dev/index.xml"), "holgith now follows blog.boot.dev")

	assert.Equal(t,
		"holgith follows:\n* Hacker News (https://news.ycombinator.com/rss)\n* blog.boot.dev (https://blog.boot.dev/index.xml)\n",
		h.mustRun("following"))

	feeds := h.mustRun("feeds")
	assert.Contains(t, feeds, "* Hacker News")
	assert.Contains(t, feeds, "* blog.boot.dev")
	assert.Contains(t, feeds, "owner:   holgith")

	assert.Contains(t, h.mustRun("unfollow", "https://news.ycombinator.com/rss"), "holgith unfollowed Hacker News")
	_, err = h.run("unfollow", "https://news.ycombinator.com/rss")
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.Equal(t,
		"holgith follows:\n* blog.boot.dev (https://blog.boot.dev/index.xml)\n",
		h.mustRun("following"))
}

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Test Blog</title>
  <link>https://example.com</link>
  <description>Posts about testing</description>
  <item>
    <title>First post</title>
    <link>https://example.com/first</link>
    <description>Learning Go</description>
    <pubDate>Mon, 02 Jan 2006 15:04:05 +0000</pubDate>
  </item>
  <item>
    <title>Second post</title>
    <link>https://example.com/second</link>
    <description>Writing tests</description>
    <pubDate>Tue, 03 Jan 2006 15:04:05 +0000</pubDate>
  </item>
</channel>
</rss>`

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, testFeed)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch(t *testing.T) {
	srv := newFeedServer(t)
	h := newHarness(t)

	out := h.mustRun("fetch", srv.URL)
	assert.Contains(t, out, "Test Blog")
	assert.Contains(t, out, "* First post")
	assert.Contains(t, out, "2 item(s)")

	out = h.mustRun("fetch", "--json", srv.URL)
	assert.Contains(t, out, `"title": "Second post"`)
}

func TestAggThenBrowse(t *testing.T) {
	srv := newFeedServer(t)
	h := newHarness(t)
	h.mustRun("register", "kahya")
	h.mustRun("addfeed", "Test Blog", srv.URL)

	assert.Equal(t, "No posts found\n", h.mustRun("browse"))

	// One immediate tick, then the long interval keeps the scheduler idle
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	out, err := h.runContext(ctx, "agg", "1h")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Collecting feeds every 1h0m0s")
	assert.Contains(t, out, "2 post(s) stored")

	out = h.mustRun("browse")
	assert.Contains(t, out, "--- First post ---")
	assert.Contains(t, out, "--- Second post ---")
	assert.Contains(t, out, "Link: https://example.com/first")
	assert.NotContains(t, out, "Next page")

	out = h.mustRun("browse", "filter", "TESTS")
	assert.Contains(t, out, "Second post")
	assert.NotContains(t, out, "First post")

	assert.Equal(t, "No posts found\n", h.mustRun("browse", "10"))
	assert.NotContains(t, h.mustRun("feeds"), "fetched: never")
}
