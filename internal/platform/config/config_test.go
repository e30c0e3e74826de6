package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

// =============================================================================
// FromEnv Tests
// =============================================================================

func (s *ConfigSuite) TestDefaults() {
	cfg, err := fromLookup(lookupFrom(nil))
	s.Require().NoError(err)
	s.Equal(Default(), cfg)
	s.Equal(":8080", cfg.Addr)
	s.Equal(BackendSQLite, cfg.Cache.Backend)
	s.Equal(DefaultNewsSearchURL, cfg.Fetch.NewsSearchURL)
	s.Equal(time.Hour, cfg.Cache.StaleAfter)
	s.Equal(24*time.Hour, cfg.Cache.HardExpireAfter)
	s.Equal(50, cfg.Fetch.MaxReports)
	s.Equal(10, cfg.Fetch.MaxNews)
	s.False(cfg.Fetch.IncludeDepartments)
	s.NoError(cfg.Validate())
}

func (s *ConfigSuite) TestOverrides() {
	cfg, err := fromLookup(lookupFrom(map[string]string{
		"COUNCILWATCH_ADDR":   ":9090",
		"CACHE_BACKEND":       "Redis",
		"REDIS_URL":           "redis://localhost:6379/0",
		"REDIS_POOL_SIZE":     "4",
		"CACHE_STALE_AFTER":   "30m",
		"CACHE_EXPIRE_AFTER":  "12h",
		"REFRESH_INTERVAL":    "15m",
		"MAX_REPORTS":         "20",
		"INCLUDE_DEPARTMENTS": "true",
		"PERSIST_TIMEOUT":     " 2s ",
	}))
	s.Require().NoError(err)
	s.Equal(":9090", cfg.Addr)
	s.Equal(BackendRedis, cfg.Cache.Backend)
	s.Equal(4, cfg.Redis.PoolSize)
	s.Equal(30*time.Minute, cfg.Cache.StaleAfter)
	s.Equal(12*time.Hour, cfg.Cache.HardExpireAfter)
	s.Equal(15*time.Minute, cfg.RefreshInterval)
	s.Equal(20, cfg.Fetch.MaxReports)
	s.True(cfg.Fetch.IncludeDepartments)
	s.Equal(2*time.Second, cfg.Cache.PersistTimeout)
	s.NoError(cfg.Validate())
}

func (s *ConfigSuite) TestNewsSearchCanBeDisabled() {
	cfg, err := fromLookup(lookupFrom(map[string]string{"NEWS_SEARCH_URL": "off"}))
	s.Require().NoError(err)
	s.Empty(cfg.Fetch.NewsSearchURL)
	s.NoError(cfg.Validate())
}

func (s *ConfigSuite) TestBlankValuesUseDefaults() {
	cfg, err := fromLookup(lookupFrom(map[string]string{"COUNCILWATCH_ADDR": "  "}))
	s.Require().NoError(err)
	s.Equal(":8080", cfg.Addr)
}

func (s *ConfigSuite) TestMalformedValuesAreReported() {
	_, err := fromLookup(lookupFrom(map[string]string{
		"CACHE_STALE_AFTER":   "soon",
		"MAX_NEWS":            "ten",
		"INCLUDE_DEPARTMENTS": "maybe",
	}))
	s.Require().Error(err)
	s.ErrorContains(err, "CACHE_STALE_AFTER")
	s.ErrorContains(err, "MAX_NEWS")
	s.ErrorContains(err, "INCLUDE_DEPARTMENTS")
}

// =============================================================================
// Validate Tests
// =============================================================================

func (s *ConfigSuite) TestValidate() {
	s.Run("stale window must be shorter than expiry", func() {
		cfg := Default()
		cfg.Cache.StaleAfter = 24 * time.Hour
		s.ErrorContains(cfg.Validate(), "CACHE_EXPIRE_AFTER")
	})

	s.Run("non-positive interval", func() {
		cfg := Default()
		cfg.RefreshInterval = 0
		s.ErrorContains(cfg.Validate(), "REFRESH_INTERVAL")
	})

	s.Run("unknown backend", func() {
		cfg := Default()
		cfg.Cache.Backend = "floppy"
		s.ErrorContains(cfg.Validate(), "floppy")
	})

	s.Run("redis backend needs a URL", func() {
		cfg := Default()
		cfg.Cache.Backend = BackendRedis
		s.ErrorContains(cfg.Validate(), "REDIS_URL")
	})

	s.Run("postgres backend needs a URL", func() {
		cfg := Default()
		cfg.Cache.Backend = BackendPostgres
		s.ErrorContains(cfg.Validate(), "DATABASE_URL")
	})

	s.Run("news search needs a query placeholder", func() {
		cfg := Default()
		cfg.Fetch.NewsSearchURL = "https://news.example.org/rss"
		s.ErrorContains(cfg.Validate(), "NEWS_SEARCH_URL")
	})

	s.Run("limits must be positive", func() {
		cfg := Default()
		cfg.Fetch.RecentItemsLimit = -1
		s.ErrorContains(cfg.Validate(), "RECENT_ITEMS_LIMIT")
	})
}
