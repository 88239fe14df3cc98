package rss

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"gator/models"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html/charset"
)

// Feed is a parsed RSS channel
type Feed struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	Items       []Item `json:"items"`
}

// Item is a channel entry. PubDate is kept as the raw string from the document.
type Item struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	PubDate     string `json:"pubDate"`
}

// element keeps the namespace so <atom:link> or <media:title> do not shadow
// the plain RSS elements of the same local name.
type element struct {
	XMLName xml.Name
	Value   string
}

// UnmarshalXML collects the character data of the element and all of its
// descendants, so markup left unescaped inside a description still counts.
func (e *element) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	e.XMLName = start.Name

	var b strings.Builder
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				e.Value = b.String()
				return nil
			}
			depth--
		}
	}
}

type elements []element

// text returns the first non-empty value of an element in the document's
// own namespace. Elements of other namespaces are extensions.
func (es elements) text(space string) string {
	for _, e := range es {
		if e.XMLName.Space != "" && e.XMLName.Space != space {
			continue
		}
		if v := strings.TrimSpace(e.Value); v != "" {
			return v
		}
	}
	return ""
}

type rawItem struct {
	Title       elements `xml:"title"`
	Link        elements `xml:"link"`
	Description elements `xml:"description"`
	PubDate     elements `xml:"pubDate"`
}

type rawChannel struct {
	Title       elements  `xml:"title"`
	Link        elements  `xml:"link"`
	Description elements  `xml:"description"`
	Items       []rawItem `xml:"item"`
}

type rawDocument struct {
	XMLName  xml.Name
	Channels []rawChannel `xml:"channel"`
}

// Parse turns an RSS 2.0 document into a Feed.
//
// A document that is not well-formed, or has no rss/channel element, fails
// with a *models.ParseError. A channel without title, link or description
// fails with a *models.ParseError wrapping a *models.ValidationError naming
// the field. Items missing any of title, link, description or pubDate are
// dropped.
func Parse(data []byte) (*Feed, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.CharsetReader = charset.NewReaderLabel
	decoder.Entity = xml.HTMLEntity

	var doc rawDocument
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &models.ParseError{Reason: "no xml root element"}
		}
		return nil, &models.ParseError{Reason: "malformed xml", Err: err}
	}

	if doc.XMLName.Local != "rss" {
		return nil, &models.ParseError{Reason: "root element <" + doc.XMLName.Local + "> is not <rss>" + detectedType(data)}
	}
	if len(doc.Channels) == 0 {
		return nil, &models.ParseError{Reason: "missing rss.channel element"}
	}

	channel := doc.Channels[0]
	space := doc.XMLName.Space
	feed := &Feed{
		Title:       channel.Title.text(space),
		Link:        channel.Link.text(space),
		Description: channel.Description.text(space),
	}

	required := []struct {
		field string
		value string
	}{
		{"title", feed.Title},
		{"link", feed.Link},
		{"description", feed.Description},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, &models.ParseError{
				Reason: "invalid channel",
				Err:    &models.ValidationError{Field: "channel." + r.field},
			}
		}
	}

	feed.Items = make([]Item, 0, len(channel.Items))
	for _, raw := range channel.Items {
		item := Item{
			Title:       raw.Title.text(space),
			Link:        raw.Link.text(space),
			Description: raw.Description.text(space),
			PubDate:     raw.PubDate.text(space),
		}
		if item.Title == "" || item.Link == "" || item.Description == "" || item.PubDate == "" {
			continue
		}
		feed.Items = append(feed.Items, item)
	}

	return feed, nil
}

func detectedType(data []byte) string {
	switch gofeed.DetectFeedType(bytes.NewReader(data)) {
	case gofeed.FeedTypeAtom:
		return " (document looks like an Atom feed, only RSS 2.0 is supported)"
	case gofeed.FeedTypeJSON:
		return " (document looks like a JSON feed, only RSS 2.0 is supported)"
	case gofeed.FeedTypeRSS:
		return " (document looks like RSS 1.0/RDF, only RSS 2.0 is supported)"
	default:
		return ""
	}
}
