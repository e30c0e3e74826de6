// Package query exposes the read models consumers render: an aggregate query
// and a recent-items query per council. Each serves from the entity cache,
// fetches through it when nothing servable is cached, and pushes state
// changes to subscribers.
package query

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"councilwatch/internal/council/aggregator"
	"councilwatch/internal/council/cache"
	"councilwatch/internal/council/metrics"
	"councilwatch/internal/council/models"
)

const DefaultRecentItemsLimit = 50

// Cache lookup outcomes recorded when a query is opened.
const (
	outcomeHit     = "hit"
	outcomeStale   = "stale"
	outcomeExpired = "expired"
	outcomeMiss    = "miss"
)

// Fetcher is the upstream side of the cache; *aggregator.Aggregator satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, council string, opts aggregator.Options) (*models.AggregateResult, error)
	FetchRecentItems(ctx context.Context, council string, limit int) ([]models.ReportItem, error)
	SupportsReports(council string) bool
}

// Service opens queries and performs deduplicated fetches that write through
// the entity cache.
type Service struct {
	store       *cache.Store
	fetcher     Fetcher
	fetchOpts   aggregator.Options
	recentLimit int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Service)

// WithFetchOptions sets the options every aggregate fetch uses. The cache
// holds one aggregate per council, so fetches are not shaped per caller.
func WithFetchOptions(opts aggregator.Options) Option {
	return func(s *Service) { s.fetchOpts = opts }
}

func WithRecentItemsLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.recentLimit = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store *cache.Store, fetcher Fetcher, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("cache store is required")
	}
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	fetchOpts := aggregator.DefaultOptions()
	fetchOpts.Departments = true
	s := &Service{
		store:       store,
		fetcher:     fetcher,
		fetchOpts:   fetchOpts,
		recentLimit: DefaultRecentItemsLimit,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// =============================================================================
// Deduplicated fetches
// =============================================================================

// FetchAggregate fetches council's aggregate and writes it to the cache. A
// concurrent call for the same council joins the running fetch. Cancelling
// ctx stops the wait, not the fetch.
func (s *Service) FetchAggregate(ctx context.Context, council string) error {
	if council == "" {
		return aggregator.ErrInvalidEntityKey
	}
	ch := s.store.Do(council, models.KindAggregate, func() (any, error) {
		res, err := s.fetcher.Fetch(context.WithoutCancel(ctx), council, s.fetchOpts)
		if err != nil {
			return nil, err
		}
		return s.store.PutAggregate(council, *res), nil
	})
	return await(ctx, ch)
}

// FetchRecentItems fetches council's recent report list and writes it to the cache.
func (s *Service) FetchRecentItems(ctx context.Context, council string) error {
	if council == "" {
		return aggregator.ErrInvalidEntityKey
	}
	ch := s.store.Do(council, models.KindRecentItems, func() (any, error) {
		items, err := s.fetcher.FetchRecentItems(context.WithoutCancel(ctx), council, s.recentLimit)
		if err != nil {
			return nil, err
		}
		return s.store.PutRecentItems(council, items), nil
	})
	return await(ctx, ch)
}

// Refresh refetches both kinds for council. It fails only if every kind that
// reached an upstream failed; for a council without a report source that is
// the aggregate alone.
func (s *Service) Refresh(ctx context.Context, council string) error {
	aggErr := s.FetchAggregate(ctx, council)
	if errors.Is(aggErr, aggregator.ErrInvalidEntityKey) {
		return aggErr
	}
	recentErr := s.FetchRecentItems(ctx, council)
	if !s.fetcher.SupportsReports(council) {
		return aggErr
	}
	if aggErr != nil && recentErr != nil {
		return errors.Join(aggErr, recentErr)
	}
	return nil
}

// LastUpdated returns when council's aggregate was last fetched.
func (s *Service) LastUpdated(council string) time.Time {
	return s.store.Timestamp(council, models.KindAggregate)
}

func await(ctx context.Context, ch <-chan singleflight.Result) error {
	select {
	case r := <-ch:
		return r.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// =============================================================================
// Queries
// =============================================================================

// AggregateOptions shapes what an aggregate query serves.
type AggregateOptions struct {
	IncludeDepartments bool
}

// Aggregate opens an aggregate query for council. Close it when done.
func (s *Service) Aggregate(ctx context.Context, council string, opts AggregateOptions) *AggregateQuery {
	q := &AggregateQuery{}
	q.w = &watcher[*models.AggregateResult]{
		key:    council,
		kind:   models.KindAggregate,
		store:  s.store,
		policy: s.store.Policy(),
		logger: s.logger,
		read: func() (*models.AggregateResult, time.Time, bool) {
			e, ok := s.store.Aggregate(council)
			if !ok {
				return nil, time.Time{}, false
			}
			return shapeAggregate(e.Data, opts), e.FetchedAt(), true
		},
		fetch: func(ctx context.Context) error { return s.FetchAggregate(ctx, council) },
		empty: func() *models.AggregateResult { return nil },
		onHit: s.lookupRecorder(models.KindAggregate),
	}
	q.w.open(ctx)
	return q
}

// RecentItems opens a recent-items query for council. The filter only
// shapes the served view.
func (s *Service) RecentItems(ctx context.Context, council string, filter RecentFilter) *RecentItemsQuery {
	q := &RecentItemsQuery{}
	q.w = &watcher[[]models.ReportItem]{
		key:    council,
		kind:   models.KindRecentItems,
		store:  s.store,
		policy: s.store.Policy(),
		logger: s.logger,
		read: func() ([]models.ReportItem, time.Time, bool) {
			e, ok := s.store.RecentItems(council)
			if !ok {
				return nil, time.Time{}, false
			}
			return filter.Apply(e.Data), e.FetchedAt(), true
		},
		fetch: func(ctx context.Context) error { return s.FetchRecentItems(ctx, council) },
		empty: func() []models.ReportItem { return []models.ReportItem{} },
		onHit: s.lookupRecorder(models.KindRecentItems),
	}
	q.w.open(ctx)
	return q
}

func (s *Service) lookupRecorder(kind models.Kind) func(string) {
	return func(outcome string) {
		if s.metrics != nil {
			s.metrics.IncrementCacheLookup(string(kind), outcome)
		}
	}
}
