package rss

import (
	"strings"
	"time"

	"gator/models"
)

// PubDateLayouts are the accepted pubDate formats, tried in order. RSS 2.0
// mandates RFC 822 dates; the variants cover single-digit days, named zones
// and the two-digit years still found in the wild.
var PubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

// ParsePubDate parses an item's pubDate into UTC. Failures return a
// *models.ValidationError so callers can skip just that item.
func ParsePubDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range PubDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &models.ValidationError{Field: "pubDate", Value: value}
}
