package freshness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"councilwatch/pkg/testutil/fakeclock"
)

type PolicySuite struct {
	suite.Suite
	clock  *fakeclock.Clock
	policy *Policy
}

func TestPolicySuite(t *testing.T) {
	suite.Run(t, new(PolicySuite))
}

func (s *PolicySuite) SetupTest() {
	s.clock = fakeclock.New(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	p, err := New(WithClock(s.clock))
	s.Require().NoError(err)
	s.policy = p
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *PolicySuite) TestNew() {
	s.Run("defaults", func() {
		p, err := New()
		s.Require().NoError(err)
		s.Equal(time.Hour, p.StaleAfter())
		s.Equal(24*time.Hour, p.HardExpireAfter())
	})

	s.Run("rejects stale-after at or above hard expiry", func() {
		_, err := New(WithStaleAfter(2*time.Hour), WithHardExpireAfter(2*time.Hour))
		s.Error(err)
	})

	s.Run("rejects non-positive stale-after", func() {
		_, err := New(WithStaleAfter(0))
		s.Error(err)
	})
}

// =============================================================================
// Validity and Staleness
// =============================================================================

func (s *PolicySuite) TestIsValid() {
	now := s.clock.Now()

	s.True(s.policy.IsValid(now))
	s.True(s.policy.IsValid(now.Add(-23 * time.Hour)))
	s.False(s.policy.IsValid(now.Add(-24 * time.Hour)))
	s.False(s.policy.IsValid(now.Add(-25 * time.Hour)))
	s.False(s.policy.IsValid(time.Time{}), "absent timestamp is never valid")
}

func (s *PolicySuite) TestIsStale() {
	now := s.clock.Now()

	s.True(s.policy.IsStale(time.Time{}), "absent timestamp is stale")
	s.False(s.policy.IsStale(now.Add(-30 * time.Minute)))
	s.False(s.policy.IsStale(now.Add(-time.Hour)), "exactly stale-after is not yet stale")
	s.True(s.policy.IsStale(now.Add(-61 * time.Minute)))
}

func (s *PolicySuite) TestMillisHelpers() {
	now := s.clock.Now()

	s.True(s.policy.IsStaleMillis(0))
	s.False(s.policy.IsValidMillis(0))
	s.True(s.policy.IsValidMillis(now.Add(-2 * time.Hour).UnixMilli()))
	s.True(s.policy.IsStaleMillis(now.Add(-2 * time.Hour).UnixMilli()))
}

func (s *PolicySuite) TestFollowsClock() {
	fetched := s.clock.Now()
	s.False(s.policy.IsStale(fetched))

	s.clock.Advance(90 * time.Minute)
	s.True(s.policy.IsStale(fetched))
	s.True(s.policy.IsValid(fetched))

	s.clock.Advance(24 * time.Hour)
	s.False(s.policy.IsValid(fetched))
}

// Expired implies stale for every age, sampled at minute granularity over two days.
func TestExpiredImpliesStale(t *testing.T) {
	clk := fakeclock.New(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	p, err := New(WithClock(clk), WithStaleAfter(time.Hour), WithHardExpireAfter(24*time.Hour))
	require.NoError(t, err)

	now := clk.Now()
	for age := time.Duration(0); age <= 48*time.Hour; age += time.Minute {
		ts := now.Add(-age)
		if !p.IsValid(ts) {
			assert.True(t, p.IsStale(ts), "age %s expired but not stale", age)
		}
	}
}
