package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Cache backends accepted by CACHE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config captures everything the server and CLI read from the environment.
type Config struct {
	Addr     string
	LogLevel string

	Cache    CacheConfig
	Fetch    FetchConfig
	Redis    RedisConfig
	Postgres PostgresConfig

	RefreshInterval time.Duration
}

// CacheConfig controls freshness windows and where the durable copy lives.
type CacheConfig struct {
	Backend         string
	File            string // file or sqlite path; empty means the XDG cache default
	StaleAfter      time.Duration
	HardExpireAfter time.Duration
	PersistTimeout  time.Duration
}

// FetchConfig bounds what a single aggregate fetch assembles.
type FetchConfig struct {
	MaxReports         int
	MaxNews            int
	RecentItemsLimit   int
	IncludeDepartments bool

	// NewsSearchURL is the secondary news feed. "{query}" is replaced with
	// the council's escaped search terms; empty disables the source.
	NewsSearchURL string
}

// RedisConfig holds connection settings for the redis cache backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type PostgresConfig struct {
	URL string
}

// DefaultNewsSearchURL queries Google News for UK results.
const DefaultNewsSearchURL = "https://news.google.com/rss/search?q={query}&hl=en-GB&gl=GB&ceid=GB:en"

// QueryPlaceholder marks where search terms go in NewsSearchURL.
const QueryPlaceholder = "{query}"

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		Addr:     ":8080",
		LogLevel: "info",
		Cache: CacheConfig{
			Backend:         BackendSQLite,
			StaleAfter:      time.Hour,
			HardExpireAfter: 24 * time.Hour,
			PersistTimeout:  5 * time.Second,
		},
		Fetch: FetchConfig{
			MaxReports:       50,
			MaxNews:          10,
			RecentItemsLimit: 50,
			NewsSearchURL:    DefaultNewsSearchURL,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		RefreshInterval: time.Hour,
	}
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	r := reader{lookup: lookup}

	cfg.Addr = r.str("COUNCILWATCH_ADDR", cfg.Addr)
	cfg.LogLevel = r.str("COUNCILWATCH_LOG_LEVEL", cfg.LogLevel)

	cfg.Cache.Backend = strings.ToLower(r.str("CACHE_BACKEND", cfg.Cache.Backend))
	cfg.Cache.File = r.str("CACHE_FILE", cfg.Cache.File)
	cfg.Cache.StaleAfter = r.duration("CACHE_STALE_AFTER", cfg.Cache.StaleAfter)
	cfg.Cache.HardExpireAfter = r.duration("CACHE_EXPIRE_AFTER", cfg.Cache.HardExpireAfter)
	cfg.Cache.PersistTimeout = r.duration("PERSIST_TIMEOUT", cfg.Cache.PersistTimeout)
	cfg.RefreshInterval = r.duration("REFRESH_INTERVAL", cfg.RefreshInterval)

	cfg.Fetch.MaxReports = r.int("MAX_REPORTS", cfg.Fetch.MaxReports)
	cfg.Fetch.MaxNews = r.int("MAX_NEWS", cfg.Fetch.MaxNews)
	cfg.Fetch.RecentItemsLimit = r.int("RECENT_ITEMS_LIMIT", cfg.Fetch.RecentItemsLimit)
	cfg.Fetch.IncludeDepartments = r.bool("INCLUDE_DEPARTMENTS", cfg.Fetch.IncludeDepartments)
	cfg.Fetch.NewsSearchURL = r.str("NEWS_SEARCH_URL", cfg.Fetch.NewsSearchURL)
	if strings.EqualFold(cfg.Fetch.NewsSearchURL, "off") {
		cfg.Fetch.NewsSearchURL = ""
	}

	cfg.Redis.URL = r.str("REDIS_URL", cfg.Redis.URL)
	cfg.Redis.PoolSize = r.int("REDIS_POOL_SIZE", cfg.Redis.PoolSize)
	cfg.Postgres.URL = r.str("DATABASE_URL", cfg.Postgres.URL)

	if err := errors.Join(r.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations the cache and scheduler cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Cache.StaleAfter <= 0 {
		errs = append(errs, errors.New("CACHE_STALE_AFTER must be positive"))
	}
	if c.Cache.StaleAfter >= c.Cache.HardExpireAfter {
		errs = append(errs, fmt.Errorf("CACHE_STALE_AFTER (%s) must be shorter than CACHE_EXPIRE_AFTER (%s)",
			c.Cache.StaleAfter, c.Cache.HardExpireAfter))
	}
	if c.RefreshInterval <= 0 {
		errs = append(errs, errors.New("REFRESH_INTERVAL must be positive"))
	}
	if c.Cache.PersistTimeout <= 0 {
		errs = append(errs, errors.New("PERSIST_TIMEOUT must be positive"))
	}
	switch c.Cache.Backend {
	case BackendMemory, BackendFile, BackendSQLite:
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis backend"))
		}
	case BackendPostgres:
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_BACKEND %q", c.Cache.Backend))
	}
	if c.Fetch.MaxReports <= 0 || c.Fetch.MaxNews <= 0 || c.Fetch.RecentItemsLimit <= 0 {
		errs = append(errs, errors.New("MAX_REPORTS, MAX_NEWS and RECENT_ITEMS_LIMIT must be positive"))
	}
	if c.Fetch.NewsSearchURL != "" && !strings.Contains(c.Fetch.NewsSearchURL, QueryPlaceholder) {
		errs = append(errs, fmt.Errorf("NEWS_SEARCH_URL must contain %s", QueryPlaceholder))
	}
	return errors.Join(errs...)
}

type reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *reader) str(key, def string) string {
	if v, ok := r.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (r *reader) int(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (r *reader) bool(key string, def bool) bool {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}
