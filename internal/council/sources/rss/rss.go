// Package rss is the primary news source: each council's own RSS or Atom feed.
package rss

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"councilwatch/internal/council/models"
)

const (
	summaryLimit   = 300
	defaultTimeout = 15 * time.Second
	sourceName     = "council-feed"
)

// FeedResolver maps a council to its feed URL.
type FeedResolver interface {
	FeedURL(council string) (string, bool)
}

// Source satisfies ports.NewsSource.
type Source struct {
	feeds  FeedResolver
	parser *gofeed.Parser
	name   string
}

type Option func(*Source)

// WithHTTPClient replaces the client used to download feeds.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) { s.parser.Client = c }
}

// WithSourceName sets the Source label stamped on every item.
func WithSourceName(name string) Option {
	return func(s *Source) { s.name = name }
}

func New(feeds FeedResolver, opts ...Option) *Source {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: defaultTimeout}
	s := &Source{feeds: feeds, parser: parser, name: sourceName}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch returns up to limit items in feed order. A council without a feed
// yields no items and no error.
func (s *Source) Fetch(ctx context.Context, council string, limit int) ([]models.NewsItem, error) {
	url, ok := s.feeds.FeedURL(council)
	if !ok {
		return []models.NewsItem{}, nil
	}
	feed, err := s.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed for %s: %w", council, err)
	}

	items := make([]models.NewsItem, 0, max(0, min(limit, len(feed.Items))))
	for _, it := range feed.Items {
		if limit > 0 && len(items) == limit {
			break
		}
		items = append(items, toNewsItem(it, s.name))
	}
	return items, nil
}

func toNewsItem(it *gofeed.Item, source string) models.NewsItem {
	summary := it.Description
	if summary == "" {
		summary = it.Content
	}
	item := models.NewsItem{
		ID:       itemID(it),
		Title:    strings.TrimSpace(it.Title),
		Summary:  truncate(stripHTML(summary), summaryLimit),
		URL:      it.Link,
		ImageURL: imageURL(it),
		Source:   source,
	}
	if len(it.Categories) > 0 {
		item.Category = it.Categories[0]
	}
	switch {
	case it.PublishedParsed != nil:
		item.Date = it.PublishedParsed.UTC().Format(time.RFC3339)
	case it.UpdatedParsed != nil:
		item.Date = it.UpdatedParsed.UTC().Format(time.RFC3339)
	}
	return item
}

// itemID is stable across fetches so clients can track read state.
func itemID(it *gofeed.Item) string {
	name := it.Link
	if name == "" {
		name = it.GUID
	}
	if name == "" {
		name = it.Title
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

func imageURL(it *gofeed.Item) string {
	if it.Image != nil && it.Image.URL != "" {
		return it.Image.URL
	}
	for _, enc := range it.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
