package rss

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"gator/models"

	log "github.com/sirupsen/logrus"
)

// FetcherConfig configures a Fetcher. Zero values fall back to defaults.
type FetcherConfig struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
	Client       *http.Client
}

// Fetcher retrieves feed documents over HTTP. It never retries.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
}

func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "gator"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10 << 20
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &Fetcher{
		client:       client,
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// Fetch GETs url and returns the response body. Transport failures, non-2xx
// responses and oversized bodies all return a *models.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &models.FetchError{Url: url, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &models.FetchError{Url: url, Err: err}
	}
	defer resp.Body.Close()

	log.WithFields(log.Fields{
		"url":     url,
		"status":  resp.StatusCode,
		"latency": time.Since(start),
	}).Debug("Fetched feed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &models.FetchError{Url: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, &models.FetchError{Url: url, Err: err}
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, &models.FetchError{Url: url, Err: fmt.Errorf("response body exceeds %d bytes", f.maxBodyBytes)}
	}

	return body, nil
}

// FetchFeed fetches and parses the feed at url
func (f *Fetcher) FetchFeed(ctx context.Context, url string) (*Feed, error) {
	body, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return Parse(body)
}
