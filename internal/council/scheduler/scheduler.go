// Package scheduler keeps the active council's aggregate fresh while the
// application is in the foreground.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"councilwatch/internal/council/freshness"
	"councilwatch/internal/council/metrics"
	"councilwatch/pkg/platform/clock"
)

const DefaultInterval = time.Hour

// Triggers and results recorded on the refresh metric.
const (
	TriggerTick       = "tick"
	TriggerForeground = "foreground"

	resultOK         = "ok"
	resultError      = "error"
	resultBackground = "skipped_background"
	resultFresh      = "skipped_fresh"
)

// Refresher performs a full aggregate refresh (reports, news and updates)
// for one council and writes it through the cache.
type Refresher interface {
	Refresh(ctx context.Context, council string) error
	// LastUpdated returns when the cached aggregate was fetched, or the zero time.
	LastUpdated(council string) time.Time
}

// AppState observes foreground/background transitions.
type AppState interface {
	IsForeground() bool
	OnChange(fn func(foreground bool)) (cancel func())
}

// Scheduler owns at most one ticker at a time, bound to the active council.
type Scheduler struct {
	refresher Refresher
	app       AppState
	policy    *freshness.Policy
	clock     clock.Clock
	interval  time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics

	mu        sync.Mutex
	cancelApp func()
	activeKey string
	ticker    clock.Ticker
	stopLoop  chan struct{}
	loopDone  chan struct{}

	// runMu guards the run state read by the ticker loop, which must never
	// take mu.
	runMu     sync.Mutex
	running   bool
	ctx       context.Context
	cancel    context.CancelFunc
	refreshes sync.WaitGroup
}

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

func New(refresher Refresher, app AppState, policy *freshness.Policy, opts ...Option) (*Scheduler, error) {
	if refresher == nil {
		return nil, errors.New("refresher is required")
	}
	if app == nil {
		return nil, errors.New("app state is required")
	}
	if policy == nil {
		return nil, errors.New("freshness policy is required")
	}
	s := &Scheduler{
		refresher: refresher,
		app:       app,
		policy:    policy,
		clock:     clock.New(),
		interval:  DefaultInterval,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start begins observing app state and, if an active council is set,
// installs its ticker. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runMu.Lock()
	if s.running {
		s.runMu.Unlock()
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.runMu.Unlock()

	s.cancelApp = s.app.OnChange(s.onAppChange)
	if s.activeKey != "" {
		s.installTickerLocked()
	}
}

// Stop removes the ticker and the app-state listener, then waits for
// refreshes already started to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.runMu.Lock()
	if !s.running {
		s.runMu.Unlock()
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.runMu.Unlock()

	s.cancelApp()
	s.stopTickerLocked()
	s.mu.Unlock()

	s.refreshes.Wait()
}

// SetActiveKey switches the council being kept fresh. The previous ticker is
// stopped before the new one is installed. No fetch is triggered.
func (s *Scheduler) SetActiveKey(council string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if council == s.activeKey {
		return
	}
	s.activeKey = council
	if !s.isRunning() {
		return
	}
	s.stopTickerLocked()
	if council != "" {
		s.installTickerLocked()
	}
	s.logger.Debug("active council changed", "council", council)
}

func (s *Scheduler) isRunning() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.running
}

func (s *Scheduler) ActiveKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeKey
}

func (s *Scheduler) installTickerLocked() {
	s.ticker = s.clock.NewTicker(s.interval)
	s.stopLoop = make(chan struct{})
	s.loopDone = make(chan struct{})
	go s.loop(s.activeKey, s.ticker, s.stopLoop, s.loopDone)
}

// stopTickerLocked waits for the loop goroutine to exit.
func (s *Scheduler) stopTickerLocked() {
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stopLoop)
	<-s.loopDone
	s.ticker = nil
	s.stopLoop = nil
	s.loopDone = nil
}

func (s *Scheduler) loop(council string, t clock.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case <-t.C():
			s.onTick(council)
		}
	}
}

func (s *Scheduler) onTick(council string) {
	if !s.app.IsForeground() {
		s.logger.Debug("refresh tick skipped in background", "council", council)
		s.record(TriggerTick, resultBackground)
		return
	}
	s.logger.Debug("refresh tick", "council", council)
	s.refresh(TriggerTick, council)
}

func (s *Scheduler) onAppChange(foreground bool) {
	if !foreground {
		return
	}
	council := s.ActiveKey()
	if council == "" {
		return
	}
	if !s.policy.IsStale(s.refresher.LastUpdated(council)) {
		s.record(TriggerForeground, resultFresh)
		return
	}
	s.refresh(TriggerForeground, council)
}

// refresh runs in the background. A failure leaves the previous cache entry
// authoritative until the next tick.
func (s *Scheduler) refresh(trigger, council string) {
	s.runMu.Lock()
	if !s.running {
		s.runMu.Unlock()
		return
	}
	ctx := s.ctx
	s.refreshes.Add(1)
	s.runMu.Unlock()

	go func() {
		defer s.refreshes.Done()
		if err := s.refresher.Refresh(ctx, council); err != nil {
			s.logger.WarnContext(ctx, "scheduled refresh failed",
				"council", council,
				"trigger", trigger,
				"error", err,
			)
			s.record(trigger, resultError)
			return
		}
		s.record(trigger, resultOK)
	}()
}

func (s *Scheduler) record(trigger, result string) {
	if s.metrics != nil {
		s.metrics.IncrementRefresh(trigger, result)
	}
}
