// Package aggregator merges the independent upstream sources for one council
// into a single AggregateResult. A failing source contributes nothing and is
// logged; it never blanks out what the other sources returned.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"councilwatch/internal/council/metrics"
	"councilwatch/internal/council/models"
	"councilwatch/internal/council/ports"
)

var (
	// ErrInvalidEntityKey is the only hard error: the council key cannot be resolved.
	ErrInvalidEntityKey = errors.New("council key is required")

	// ErrAllSourcesFailed means every requested source for a fetch failed.
	ErrAllSourcesFailed = errors.New("all requested sources failed")
)

const (
	DefaultMaxReports = 50
	DefaultMaxNews    = 10

	// UpdatesLimit caps the recently-resolved items shown as updates.
	UpdatesLimit = 5

	fixedPrefix = "Fixed: "
)

// Source labels used in logs, metrics and spans.
const (
	SourceReports       = "reports"
	SourcePrimaryNews   = "news_primary"
	SourceSecondaryNews = "news_secondary"
	SourceUpdates       = "updates"
)

// Options selects which collections a fetch assembles.
type Options struct {
	Reports     bool
	News        bool
	Updates     bool
	Departments bool
	MaxReports  int
	MaxNews     int
}

// DefaultOptions fetches reports, news and updates without the department directory.
func DefaultOptions() Options {
	return Options{
		Reports:    true,
		News:       true,
		Updates:    true,
		MaxReports: DefaultMaxReports,
		MaxNews:    DefaultMaxNews,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxReports <= 0 {
		o.MaxReports = DefaultMaxReports
	}
	if o.MaxNews <= 0 {
		o.MaxNews = DefaultMaxNews
	}
	return o
}

// Aggregator is free of caching concerns; the cache store layers on top.
type Aggregator struct {
	reports       ports.ReportSource
	primaryNews   ports.NewsSource
	secondaryNews ports.NewsSource
	updates       ports.UpdatesSource
	directory     ports.DepartmentDirectory
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
}

type Option func(*Aggregator)

func WithReportSource(src ports.ReportSource) Option {
	return func(a *Aggregator) { a.reports = src }
}

// WithNewsSources sets the news sources in priority order. secondary may be nil.
func WithNewsSources(primary, secondary ports.NewsSource) Option {
	return func(a *Aggregator) {
		a.primaryNews = primary
		a.secondaryNews = secondary
	}
}

func WithUpdatesSource(src ports.UpdatesSource) Option {
	return func(a *Aggregator) { a.updates = src }
}

func WithDirectory(dir ports.DepartmentDirectory) Option {
	return func(a *Aggregator) { a.directory = dir }
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(a *Aggregator) { a.tracer = t }
}

// New builds an Aggregator. Unset sources are treated as covering no council.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		logger: slog.New(slog.DiscardHandler),
		tracer: otel.Tracer("councilwatch/aggregator"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Fetch assembles the aggregate for council. Partial failures are absorbed;
// ErrAllSourcesFailed is returned only when every source that was queried failed.
func (a *Aggregator) Fetch(ctx context.Context, council string, opts Options) (*models.AggregateResult, error) {
	if council == "" {
		return nil, ErrInvalidEntityKey
	}
	opts = opts.withDefaults()

	ctx, span := a.tracer.Start(ctx, "aggregator.Fetch", trace.WithAttributes(
		attribute.String("council", council),
	))
	defer span.End()

	result := &models.AggregateResult{
		EntityName: council,
		Reports:    []models.ReportItem{},
		News:       []models.NewsItem{},
		Updates:    []models.NewsItem{},
	}
	t := &tally{}

	// Legs write disjoint fields of result, so they need no extra locking.
	var g errgroup.Group

	if opts.Reports && a.reports != nil && a.reports.Supports(council) {
		g.Go(func() error {
			items, _ := fetchLeg(ctx, a, t, SourceReports, council, func(ctx context.Context) ([]models.ReportItem, error) {
				return a.reports.FetchRecent(ctx, council, "", opts.MaxReports)
			})
			items = truncate(items, opts.MaxReports)
			result.Reports = items
			result.Stats = models.ComputeStats(items)
			return nil
		})
	}

	if opts.News {
		g.Go(func() error {
			result.News = a.fetchNews(ctx, t, council, opts.MaxNews)
			return nil
		})
	}

	if opts.Updates && a.updates != nil && a.updates.Supports(council) {
		g.Go(func() error {
			closed, _ := fetchLeg(ctx, a, t, SourceUpdates, council, func(ctx context.Context) ([]models.ReportItem, error) {
				return a.updates.FetchRecentlyClosed(ctx, council, UpdatesLimit)
			})
			result.Updates = toUpdates(truncate(closed, UpdatesLimit))
			return nil
		})
	}

	if opts.Departments && a.directory != nil {
		if dir, ok := a.directory.Lookup(council); ok {
			result.Departments = dir
		}
	}

	_ = g.Wait()

	if t.allFailed() {
		span.SetStatus(codes.Error, ErrAllSourcesFailed.Error())
		return nil, fmt.Errorf("%w for council %q", ErrAllSourcesFailed, council)
	}
	span.SetAttributes(
		attribute.Int("reports", len(result.Reports)),
		attribute.Int("news", len(result.News)),
		attribute.Int("updates", len(result.Updates)),
		attribute.Int("failed_sources", t.failedCount()),
	)
	return result, nil
}

// fetchNews asks the primary feed first and tops up from the secondary
// source only when the primary came back short. Primary items keep their lead
// and secondary items repeating one are dropped.
func (a *Aggregator) fetchNews(ctx context.Context, t *tally, council string, maxNews int) []models.NewsItem {
	items := []models.NewsItem{}
	if a.primaryNews != nil {
		primary, _ := fetchLeg(ctx, a, t, SourcePrimaryNews, council, func(ctx context.Context) ([]models.NewsItem, error) {
			return a.primaryNews.Fetch(ctx, council, maxNews)
		})
		items = append(items, primary...)
	}
	if len(items) < maxNews && a.secondaryNews != nil {
		remainder := maxNews - len(items)
		secondary, _ := fetchLeg(ctx, a, t, SourceSecondaryNews, council, func(ctx context.Context) ([]models.NewsItem, error) {
			return a.secondaryNews.Fetch(ctx, council, remainder)
		})
		seen := make(map[string]struct{}, len(items))
		for _, it := range items {
			seen[it.ID] = struct{}{}
		}
		for _, it := range secondary {
			if _, dup := seen[it.ID]; dup {
				continue
			}
			seen[it.ID] = struct{}{}
			items = append(items, it)
		}
	}
	return truncate(items, maxNews)
}

// FetchRecentItems returns the recent report list for council. Councils the
// report source does not cover yield an empty list without error.
func (a *Aggregator) FetchRecentItems(ctx context.Context, council string, limit int) ([]models.ReportItem, error) {
	if council == "" {
		return nil, ErrInvalidEntityKey
	}
	if a.reports == nil || !a.reports.Supports(council) {
		return []models.ReportItem{}, nil
	}

	ctx, span := a.tracer.Start(ctx, "aggregator.FetchRecentItems", trace.WithAttributes(
		attribute.String("council", council),
	))
	defer span.End()

	t := &tally{}
	items, ok := fetchLeg(ctx, a, t, SourceReports, council, func(ctx context.Context) ([]models.ReportItem, error) {
		return a.reports.FetchRecent(ctx, council, "", limit)
	})
	if !ok {
		span.SetStatus(codes.Error, ErrAllSourcesFailed.Error())
		return nil, fmt.Errorf("%w for council %q", ErrAllSourcesFailed, council)
	}
	return truncate(items, limit), nil
}

// SupportsReports reports whether the report source covers council.
func (a *Aggregator) SupportsReports(council string) bool {
	return a.reports != nil && a.reports.Supports(council)
}

// fetchLeg runs one source call, recording latency and absorbing failure.
// ok is false when the call failed; items is then empty, never nil.
func fetchLeg[T any](
	ctx context.Context,
	a *Aggregator,
	t *tally,
	source string,
	council string,
	call func(context.Context) ([]T, error),
) (items []T, ok bool) {
	ctx, span := a.tracer.Start(ctx, "aggregator.source", trace.WithAttributes(
		attribute.String("source", source),
	))
	defer span.End()

	start := time.Now()
	items, err := call(ctx)
	if a.metrics != nil {
		a.metrics.ObserveSourceLatency(source, time.Since(start))
	}
	t.record(err == nil)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "source failed")
		if a.metrics != nil {
			a.metrics.IncrementSourceFailure(source)
		}
		a.logger.WarnContext(ctx, "council source failed",
			"council", council,
			"source", source,
			"error", err,
		)
		return []T{}, false
	}
	if items == nil {
		items = []T{}
	}
	return items, true
}

func toUpdates(closed []models.ReportItem) []models.NewsItem {
	updates := make([]models.NewsItem, 0, len(closed))
	for _, r := range closed {
		updates = append(updates, models.NewsItem{
			ID:       r.ID,
			Title:    fixedPrefix + r.Title,
			Summary:  r.Description,
			Date:     r.Date,
			Source:   r.Source,
			Category: r.Category,
		})
	}
	return updates
}

func truncate[T any](items []T, n int) []T {
	if n >= 0 && len(items) > n {
		return items[:n]
	}
	return items
}

// tally counts attempted and failed source calls across concurrent legs.
type tally struct {
	mu        sync.Mutex
	attempted int
	failed    int
}

func (t *tally) record(ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempted++
	if !ok {
		t.failed++
	}
}

func (t *tally) allFailed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempted > 0 && t.failed == t.attempted
}

func (t *tally) failedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed
}
