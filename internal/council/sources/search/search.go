// Package search is the secondary news source: a news search feed queried
// with each council's search terms. Results are RSS and parse like council feeds.
package search

import (
	"net/url"
	"strings"

	"councilwatch/internal/council/sources/rss"
)

const (
	SourceName  = "news-search"
	placeholder = "{query}"
)

// QueryResolver maps a council to its search terms.
type QueryResolver interface {
	SearchQuery(council string) (string, bool)
}

// Feeds expands a search URL template per council. It satisfies rss.FeedResolver.
type Feeds struct {
	template string
	queries  QueryResolver
}

func NewFeeds(template string, queries QueryResolver) Feeds {
	return Feeds{template: template, queries: queries}
}

// FeedURL returns the search feed for council. An empty template or a council
// without search terms has no feed.
func (f Feeds) FeedURL(council string) (string, bool) {
	if f.template == "" || !strings.Contains(f.template, placeholder) {
		return "", false
	}
	q, ok := f.queries.SearchQuery(council)
	if !ok || strings.TrimSpace(q) == "" {
		return "", false
	}
	return strings.ReplaceAll(f.template, placeholder, url.QueryEscape(q)), true
}

// New returns a news source over the search feed at template.
func New(template string, queries QueryResolver, opts ...rss.Option) *rss.Source {
	opts = append([]rss.Option{rss.WithSourceName(SourceName)}, opts...)
	return rss.New(NewFeeds(template, queries), opts...)
}
