// Package freshness decides whether a cached timestamp may be served as-is,
// served while a background refresh runs, or must be refetched first.
package freshness

import (
	"fmt"
	"time"

	"councilwatch/pkg/platform/clock"
)

const (
	DefaultStaleAfter      = time.Hour
	DefaultHardExpireAfter = 24 * time.Hour
	DefaultRefreshInterval = time.Hour
)

// Policy holds the staleness thresholds. It is stateless apart from the clock.
type Policy struct {
	staleAfter      time.Duration
	hardExpireAfter time.Duration
	clock           clock.Clock
}

// Option configures a Policy.
type Option func(*Policy)

// WithStaleAfter sets the age after which an entry is refreshed in the background.
func WithStaleAfter(d time.Duration) Option {
	return func(p *Policy) { p.staleAfter = d }
}

// WithHardExpireAfter sets the age after which an entry must not be served without a refetch.
func WithHardExpireAfter(d time.Duration) Option {
	return func(p *Policy) { p.hardExpireAfter = d }
}

// WithClock overrides the system clock.
func WithClock(c clock.Clock) Option {
	return func(p *Policy) { p.clock = c }
}

// New builds a Policy. staleAfter must be strictly below hardExpireAfter so
// that every expired timestamp is also stale.
func New(opts ...Option) (*Policy, error) {
	p := &Policy{
		staleAfter:      DefaultStaleAfter,
		hardExpireAfter: DefaultHardExpireAfter,
		clock:           clock.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.staleAfter <= 0 {
		return nil, fmt.Errorf("stale-after must be positive, got %s", p.staleAfter)
	}
	if p.hardExpireAfter <= p.staleAfter {
		return nil, fmt.Errorf("hard-expire-after (%s) must exceed stale-after (%s)", p.hardExpireAfter, p.staleAfter)
	}
	return p, nil
}

// Default returns the policy with default thresholds and the system clock.
func Default() *Policy {
	p, _ := New()
	return p
}

// Now returns the policy clock's current time.
func (p *Policy) Now() time.Time {
	return p.clock.Now()
}

// IsValid reports whether an entry fetched at ts may be served without a refetch.
// The zero time is never valid.
func (p *Policy) IsValid(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return p.clock.Now().Sub(ts) < p.hardExpireAfter
}

// IsStale reports whether an entry fetched at ts warrants a refresh.
// The zero time stands for an absent entry and is always stale.
func (p *Policy) IsStale(ts time.Time) bool {
	if ts.IsZero() {
		return true
	}
	return p.clock.Now().Sub(ts) > p.staleAfter
}

// IsValidMillis is IsValid for an epoch-millis timestamp.
func (p *Policy) IsValidMillis(ms int64) bool {
	return p.IsValid(fromMillis(ms))
}

// IsStaleMillis is IsStale for an epoch-millis timestamp; 0 means absent.
func (p *Policy) IsStaleMillis(ms int64) bool {
	return p.IsStale(fromMillis(ms))
}

func (p *Policy) StaleAfter() time.Duration      { return p.staleAfter }
func (p *Policy) HardExpireAfter() time.Duration { return p.hardExpireAfter }

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
