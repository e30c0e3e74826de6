package query

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"councilwatch/internal/council/cache"
	"councilwatch/internal/council/freshness"
	"councilwatch/internal/council/models"
)

// MessageFetchFailed is the user-facing error set when a fetch fails entirely.
const MessageFetchFailed = "Couldn't load the latest council data. Showing what we have."

// State is the snapshot a presentation layer renders. Data is never nil for
// list kinds; an absent aggregate is a nil pointer.
type State[T any] struct {
	Data        T         `json:"data"`
	Loading     bool      `json:"loading"`
	Error       string    `json:"error,omitempty"`
	LastUpdated time.Time `json:"lastUpdated,omitzero"`
	IsStale     bool      `json:"isStale"`
}

// Listener receives every state change of a query.
type Listener[T any] func(State[T])

// watcher is the cache-backed read model shared by both query kinds.
type watcher[T any] struct {
	key    string
	kind   models.Kind
	store  *cache.Store
	policy *freshness.Policy
	logger *slog.Logger

	// read returns the cached view and its fetch time; ok is false when
	// nothing is cached.
	read  func() (data T, fetchedAt time.Time, ok bool)
	fetch func(ctx context.Context) error
	empty func() T
	onHit func(outcome string)

	mu        sync.Mutex
	state     State[T]
	hasData   bool
	done      chan struct{}
	listeners map[uint64]Listener[T]
	nextID    uint64
	closed    bool
	unsub     func()
}

// open performs the first observation: serve a valid cached entry at once and
// revalidate it in the background if stale, or start loading when nothing
// servable is cached.
func (w *watcher[T]) open(ctx context.Context) {
	w.listeners = make(map[uint64]Listener[T])
	w.unsub = w.store.Subscribe(w.key, func(kind models.Kind) {
		if kind == w.kind {
			w.sync()
		}
	})

	w.mu.Lock()
	data, ts, ok := w.read()
	outcome := outcomeMiss
	switch {
	case ok && w.policy.IsValid(ts):
		w.applyLocked(data, ts)
		outcome = outcomeHit
		if w.state.IsStale {
			outcome = outcomeStale
		}
	case ok:
		// Expired entries are never served before a refetch is attempted.
		outcome = outcomeExpired
		w.state = State[T]{Data: w.empty(), IsStale: true}
	default:
		w.state = State[T]{Data: w.empty(), IsStale: true}
	}
	w.mu.Unlock()

	w.onHit(outcome)
	if outcome != outcomeHit {
		w.load(ctx)
	}
}

// load starts a fetch unless one started by this query is still running.
// The previous value keeps being served while it runs.
func (w *watcher[T]) load(ctx context.Context) <-chan struct{} {
	w.mu.Lock()
	if w.done != nil {
		done := w.done
		w.mu.Unlock()
		return done
	}
	if w.closed {
		w.mu.Unlock()
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	done := make(chan struct{})
	w.done = done
	w.state.Loading = true
	snapshot := w.state
	fns := w.listenersLocked()
	w.mu.Unlock()
	emit(fns, snapshot)

	bg := context.WithoutCancel(ctx)
	go func() {
		err := w.fetch(bg)
		if err != nil {
			w.logger.WarnContext(bg, "council fetch failed",
				"council", w.key,
				"kind", string(w.kind),
				"error", err,
			)
		}
		w.finish(err)
		close(done)
	}()
	return done
}

func (w *watcher[T]) finish(err error) {
	w.mu.Lock()
	w.done = nil
	w.state.Loading = false
	if err != nil {
		w.state.Error = MessageFetchFailed
	} else {
		w.state.Error = ""
	}
	// After a fetch attempt any cached value may be served, even an expired one.
	if data, ts, ok := w.read(); ok {
		w.applyLocked(data, ts)
	}
	snapshot := w.state
	fns := w.listenersLocked()
	w.mu.Unlock()
	emit(fns, snapshot)
}

// sync re-reads the cache after a push from the store. An entry that only
// becomes visible through a write (e.g. a scheduler refresh) clears a prior error.
func (w *watcher[T]) sync() {
	w.mu.Lock()
	data, ts, ok := w.read()
	if !ok {
		if w.done != nil || !w.hasData {
			w.mu.Unlock()
			return
		}
		// Cleared: fall back to empty data.
		w.hasData = false
		w.state.Data = w.empty()
		w.state.LastUpdated = time.Time{}
		w.state.IsStale = true
	} else {
		if ts.After(w.state.LastUpdated) {
			w.state.Error = ""
		}
		w.applyLocked(data, ts)
	}
	snapshot := w.state
	fns := w.listenersLocked()
	w.mu.Unlock()
	emit(fns, snapshot)
}

func (w *watcher[T]) applyLocked(data T, ts time.Time) {
	w.state.Data = data
	w.state.LastUpdated = ts
	w.state.IsStale = w.policy.IsStale(ts)
	w.hasData = true
}

// State returns the current snapshot.
func (w *watcher[T]) State() State[T] {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Subscribe registers fn for state changes and returns a func removing it.
func (w *watcher[T]) Subscribe(fn Listener[T]) (unsubscribe func()) {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = fn
	w.mu.Unlock()
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.listeners, id)
	}
}

// Refresh forces a refetch regardless of cache validity and waits for it.
// The previous value is served while loading.
func (w *watcher[T]) Refresh(ctx context.Context) State[T] {
	done := w.load(ctx)
	select {
	case <-done:
	case <-ctx.Done():
	}
	return w.State()
}

// Await returns as soon as there is servable data or the current load ends.
func (w *watcher[T]) Await(ctx context.Context) State[T] {
	w.mu.Lock()
	done := w.done
	ready := w.hasData
	w.mu.Unlock()
	if ready || done == nil {
		return w.State()
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
	return w.State()
}

// Close detaches the query from the cache. A running fetch still completes
// and writes through the cache.
func (w *watcher[T]) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.listeners = map[uint64]Listener[T]{}
	w.mu.Unlock()
	w.unsub()
}

func (w *watcher[T]) listenersLocked() []Listener[T] {
	fns := make([]Listener[T], 0, len(w.listeners))
	for _, fn := range w.listeners {
		fns = append(fns, fn)
	}
	return fns
}

func emit[T any](fns []Listener[T], st State[T]) {
	for _, fn := range fns {
		fn(st)
	}
}
