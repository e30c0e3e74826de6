// Package cache is the single source of truth for what is currently known
// about each council. It owns the in-memory mapping, the durable copy and the
// in-flight fetch registry; consumers read through it and never mutate it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"councilwatch/internal/council/freshness"
	"councilwatch/internal/council/metrics"
	"councilwatch/internal/council/models"
	"councilwatch/internal/council/ports"
	"councilwatch/pkg/platform/sentinel"
)

// PersistKey is the well-known key holding the serialized mapping.
const PersistKey = "councilwatch:entity-cache"

const defaultPersistTimeout = 5 * time.Second

// Listener is notified after an entry of kind is replaced or cleared for the
// key it subscribed to.
type Listener func(kind models.Kind)

// Store maps council key to EntityCache.
type Store struct {
	mu       sync.RWMutex
	entities map[string]models.EntityCache

	subMu   sync.RWMutex
	subs    map[string]map[uint64]Listener
	nextSub uint64

	flightMu sync.Mutex
	waiting  map[string]int
	flights  singleflight.Group

	kv             ports.KVStore
	policy         *freshness.Policy
	logger         *slog.Logger
	metrics        *metrics.Metrics
	persistTimeout time.Duration

	persistMu sync.Mutex
	pending   sync.WaitGroup
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

func WithPersistTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.persistTimeout = d
		}
	}
}

// New builds an empty Store backed by kv. Call Load once at startup.
func New(kv ports.KVStore, policy *freshness.Policy, opts ...Option) (*Store, error) {
	if kv == nil {
		return nil, errors.New("durable kv store is required")
	}
	if policy == nil {
		return nil, errors.New("freshness policy is required")
	}
	s := &Store{
		entities:       make(map[string]models.EntityCache),
		subs:           make(map[string]map[uint64]Listener),
		waiting:        make(map[string]int),
		kv:             kv,
		policy:         policy,
		logger:         slog.New(slog.DiscardHandler),
		persistTimeout: defaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Policy returns the freshness policy the store prunes with.
func (s *Store) Policy() *freshness.Policy {
	return s.policy
}

// =============================================================================
// Reads
// =============================================================================

// Aggregate returns the current aggregate entry for key. It never fetches.
// The returned data is shared with the cache and must not be mutated.
func (s *Store) Aggregate(key string) (models.CacheEntry[models.AggregateResult], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.entities[key].Aggregate
	if e == nil {
		return models.CacheEntry[models.AggregateResult]{}, false
	}
	return *e, true
}

// RecentItems returns the current recent-items entry for key. It never fetches.
func (s *Store) RecentItems(key string) (models.CacheEntry[[]models.ReportItem], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.entities[key].RecentItems
	if e == nil {
		return models.CacheEntry[[]models.ReportItem]{}, false
	}
	return *e, true
}

// Timestamp returns when key's entry of kind was fetched, or the zero time.
func (s *Store) Timestamp(key string, kind models.Kind) time.Time {
	switch kind {
	case models.KindAggregate:
		if e, ok := s.Aggregate(key); ok {
			return e.FetchedAt()
		}
	case models.KindRecentItems:
		if e, ok := s.RecentItems(key); ok {
			return e.FetchedAt()
		}
	}
	return time.Time{}
}

// Keys returns the councils currently cached.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entities))
	for k := range s.entities {
		keys = append(keys, k)
	}
	return keys
}

// Stats summarizes the cache contents.
type Stats struct {
	Entities    int       `json:"entities"`
	Aggregates  int       `json:"aggregates"`
	RecentItems int       `json:"recentItems"`
	Oldest      time.Time `json:"oldest,omitzero"`
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{Entities: len(s.entities)}
	var oldest int64
	track := func(ts int64) {
		if oldest == 0 || ts < oldest {
			oldest = ts
		}
	}
	for _, e := range s.entities {
		if e.Aggregate != nil {
			st.Aggregates++
			track(e.Aggregate.Timestamp)
		}
		if e.RecentItems != nil {
			st.RecentItems++
			track(e.RecentItems.Timestamp)
		}
	}
	if oldest != 0 {
		st.Oldest = time.UnixMilli(oldest)
	}
	return st
}

// =============================================================================
// Writes
// =============================================================================

// PutAggregate replaces key's aggregate with data stamped now, then persists
// the whole mapping in the background.
func (s *Store) PutAggregate(key string, data models.AggregateResult) models.CacheEntry[models.AggregateResult] {
	entry := models.NewCacheEntry(data, s.policy.Now())
	s.mu.Lock()
	ec := s.entities[key]
	ec.Aggregate = &entry
	s.entities[key] = ec
	s.mu.Unlock()

	s.notify(key, models.KindAggregate)
	s.persistAsync()
	return entry
}

// PutRecentItems replaces key's recent-items list with items stamped now.
func (s *Store) PutRecentItems(key string, items []models.ReportItem) models.CacheEntry[[]models.ReportItem] {
	if items == nil {
		items = []models.ReportItem{}
	}
	entry := models.NewCacheEntry(items, s.policy.Now())
	s.mu.Lock()
	ec := s.entities[key]
	ec.RecentItems = &entry
	s.entities[key] = ec
	s.mu.Unlock()

	s.notify(key, models.KindRecentItems)
	s.persistAsync()
	return entry
}

// Clear removes key's cache. An empty key clears every council and deletes
// the durable copy; the in-memory mapping is cleared even if that delete fails.
func (s *Store) Clear(ctx context.Context, key string) error {
	if key != "" {
		s.mu.Lock()
		_, existed := s.entities[key]
		delete(s.entities, key)
		s.mu.Unlock()
		if existed {
			s.notify(key, models.KindAggregate)
			s.notify(key, models.KindRecentItems)
			s.persistAsync()
		}
		return nil
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	cleared := make([]string, 0, len(s.entities))
	for k := range s.entities {
		cleared = append(cleared, k)
	}
	s.entities = make(map[string]models.EntityCache)
	s.mu.Unlock()
	s.recordSize()

	for _, k := range cleared {
		s.notify(k, models.KindAggregate)
		s.notify(k, models.KindRecentItems)
	}

	if err := s.kv.Delete(ctx, PersistKey); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.persistenceFailed(ctx, "delete", err)
		return fmt.Errorf("delete durable cache: %w", err)
	}
	return nil
}

// =============================================================================
// Persistence
// =============================================================================

// Load reads the durable copy, drops entries that are no longer valid, and
// publishes the rest. Entries already written in memory take precedence.
// Read failures are returned for logging only; the store stays usable.
func (s *Store) Load(ctx context.Context) (int, error) {
	raw, err := s.kv.Get(ctx, PersistKey)
	if errors.Is(err, sentinel.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		s.persistenceFailed(ctx, "load", err)
		return 0, fmt.Errorf("load durable cache: %w", err)
	}

	var persisted map[string]models.EntityCache
	if err := json.Unmarshal(raw, &persisted); err != nil {
		s.logger.WarnContext(ctx, "discarding unparseable entity cache", "error", err)
		s.persistenceFailed(ctx, "decode", err)
		if delErr := s.kv.Delete(ctx, PersistKey); delErr != nil && !errors.Is(delErr, sentinel.ErrNotFound) {
			s.persistenceFailed(ctx, "delete", delErr)
		}
		return 0, nil
	}

	kept, dropped := s.prune(persisted)

	s.mu.Lock()
	published := make([]string, 0, len(kept))
	for k, ec := range kept {
		if _, exists := s.entities[k]; exists {
			continue
		}
		s.entities[k] = ec
		published = append(published, k)
	}
	s.mu.Unlock()
	s.recordSize()

	for _, k := range published {
		s.notify(k, models.KindAggregate)
		s.notify(k, models.KindRecentItems)
	}
	if dropped > 0 {
		s.logger.InfoContext(ctx, "pruned expired cache entries", "dropped", dropped)
		s.persistAsync()
	}
	return len(published), nil
}

// Prune drops in-memory entries that are no longer valid and persists the
// result. It returns the number of entries dropped.
func (s *Store) Prune() int {
	s.mu.Lock()
	kept, dropped := s.prune(s.entities)
	s.entities = kept
	s.mu.Unlock()
	if dropped > 0 {
		s.persistAsync()
	}
	return dropped
}

// prune returns a copy of in without invalid entries. aggregate and
// recentItems expire independently.
func (s *Store) prune(in map[string]models.EntityCache) (map[string]models.EntityCache, int) {
	out := make(map[string]models.EntityCache, len(in))
	dropped := 0
	for k, ec := range in {
		if ec.Aggregate != nil && !s.policy.IsValidMillis(ec.Aggregate.Timestamp) {
			ec.Aggregate = nil
			dropped++
		}
		if ec.RecentItems != nil && !s.policy.IsValidMillis(ec.RecentItems.Timestamp) {
			ec.RecentItems = nil
			dropped++
		}
		if ec.IsEmpty() {
			continue
		}
		out[k] = ec
	}
	return out, dropped
}

// Flush synchronously writes the current mapping to the durable store.
func (s *Store) Flush(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	return s.write(ctx)
}

// Wait blocks until background persistence started so far has finished.
func (s *Store) Wait() {
	s.pending.Wait()
}

func (s *Store) persistAsync() {
	s.recordSize()
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		// The snapshot is taken after acquiring persistMu, so the last writer
		// always persists the latest in-memory state.
		s.persistMu.Lock()
		defer s.persistMu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
		defer cancel()
		if err := s.write(ctx); err != nil {
			s.persistenceFailed(ctx, "save", err)
		}
	}()
}

// write must be called with persistMu held.
func (s *Store) write(ctx context.Context) error {
	s.mu.RLock()
	raw, err := json.Marshal(s.entities)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode entity cache: %w", err)
	}
	if err := s.kv.Set(ctx, PersistKey, raw); err != nil {
		return fmt.Errorf("save entity cache: %w", err)
	}
	return nil
}

func (s *Store) persistenceFailed(ctx context.Context, op string, err error) {
	if s.metrics != nil {
		s.metrics.IncrementPersistenceFailure(op)
	}
	s.logger.WarnContext(ctx, "entity cache persistence failed", "op", op, "error", err)
}

func (s *Store) recordSize() {
	if s.metrics == nil {
		return
	}
	s.mu.RLock()
	n := len(s.entities)
	s.mu.RUnlock()
	s.metrics.SetCachedEntities(n)
}

// =============================================================================
// Subscriptions
// =============================================================================

// Subscribe registers fn for changes to key. The returned func unsubscribes.
// Listeners run synchronously on the writing goroutine and must not block.
func (s *Store) Subscribe(key string, fn Listener) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	if s.subs[key] == nil {
		s.subs[key] = make(map[uint64]Listener)
	}
	s.subs[key][id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.subs[key], id)
			if len(s.subs[key]) == 0 {
				delete(s.subs, key)
			}
		})
	}
}

func (s *Store) notify(key string, kind models.Kind) {
	s.subMu.RLock()
	listeners := make([]Listener, 0, len(s.subs[key]))
	for _, fn := range s.subs[key] {
		listeners = append(listeners, fn)
	}
	s.subMu.RUnlock()
	for _, fn := range listeners {
		fn(kind)
	}
}

// =============================================================================
// In-flight fetches
// =============================================================================

// Do runs fn unless a fetch for (key, kind) is already running, in which case
// the caller attaches to that fetch's result. fn runs on its own goroutine and
// is never cancelled by the caller; callers stop waiting by abandoning the channel.
//
// A (key, kind) counts as in flight until every caller attached to it has been
// handed its result.
func (s *Store) Do(key string, kind models.Kind, fn func() (any, error)) <-chan singleflight.Result {
	fk := flightKey(key, kind)

	s.flightMu.Lock()
	if s.waiting[fk] > 0 && s.metrics != nil {
		s.metrics.IncrementInFlightJoin(string(kind))
	}
	s.waiting[fk]++
	s.flightMu.Unlock()

	src := s.flights.DoChan(fk, fn)
	out := make(chan singleflight.Result, 1)
	go func() {
		r := <-src
		s.flightMu.Lock()
		if s.waiting[fk]--; s.waiting[fk] <= 0 {
			delete(s.waiting, fk)
		}
		s.flightMu.Unlock()
		out <- r
	}()
	return out
}

// InFlight reports whether a fetch for (key, kind) is running.
func (s *Store) InFlight(key string, kind models.Kind) bool {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()
	return s.waiting[flightKey(key, kind)] > 0
}

func flightKey(key string, kind models.Kind) string {
	return string(kind) + "\x00" + key
}
