// Package app assembles the council data core from configuration. The HTTP
// server and the CLI both build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"councilwatch/internal/council/aggregator"
	"councilwatch/internal/council/cache"
	"councilwatch/internal/council/directory"
	"councilwatch/internal/council/freshness"
	"councilwatch/internal/council/handler"
	"councilwatch/internal/council/kvstore"
	"councilwatch/internal/council/lifecycle"
	"councilwatch/internal/council/metrics"
	"councilwatch/internal/council/ports"
	"councilwatch/internal/council/query"
	"councilwatch/internal/council/scheduler"
	"councilwatch/internal/council/sources/open311"
	"councilwatch/internal/council/sources/rss"
	"councilwatch/internal/council/sources/search"
	"councilwatch/internal/platform/config"
	platformmetrics "councilwatch/internal/platform/metrics"
	"councilwatch/internal/platform/middleware"
	"councilwatch/internal/platform/postgres"
	"councilwatch/internal/platform/redis"
)

// App holds the wired components. Close releases the durable backend.
type App struct {
	Config     config.Config
	Logger     *slog.Logger
	Registry   *prometheus.Registry
	Metrics    *metrics.Metrics
	Directory  *directory.Directory
	Store      *cache.Store
	Aggregator *aggregator.Aggregator
	Queries    *query.Service
	Lifecycle  *lifecycle.State
	Scheduler  *scheduler.Scheduler

	closers []func() error
}

type Option func(*options)

type options struct {
	kv        ports.KVStore
	directory *directory.Directory
	rssOpts   []rss.Option
	o311Opts  []open311.Option
}

// WithKVStore bypasses CACHE_BACKEND with an already opened store.
func WithKVStore(kv ports.KVStore) Option {
	return func(o *options) { o.kv = kv }
}

func WithDirectory(d *directory.Directory) Option {
	return func(o *options) { o.directory = d }
}

// WithHTTPClient sets the client both upstream sources use.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.rssOpts = append(o.rssOpts, rss.WithHTTPClient(c))
		o.o311Opts = append(o.o311Opts, open311.WithHTTPClient(c))
	}
}

// New wires every component and restores the durable cache copy. The
// scheduler is built but not started.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Registry:  platformmetrics.NewRegistry(),
		Directory: o.directory,
	}
	if a.Directory == nil {
		a.Directory = directory.Default()
	}
	a.Metrics = metrics.New(a.Registry)

	kv := o.kv
	if kv == nil {
		var closer func() error
		var err error
		kv, closer, err = openKV(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if closer != nil {
			a.closers = append(a.closers, closer)
		}
	}

	policy, err := freshness.New(
		freshness.WithStaleAfter(cfg.Cache.StaleAfter),
		freshness.WithHardExpireAfter(cfg.Cache.HardExpireAfter),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Store, err = cache.New(kv, policy,
		cache.WithLogger(logger.With("component", "cache")),
		cache.WithMetrics(a.Metrics),
		cache.WithPersistTimeout(cfg.Cache.PersistTimeout),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	restored, err := a.Store.Load(ctx)
	if err != nil {
		// The in-memory cache still works without the durable copy.
		logger.WarnContext(ctx, "cache restore failed", "backend", cfg.Cache.Backend, "error", err)
	} else {
		logger.InfoContext(ctx, "cache restored", "backend", cfg.Cache.Backend, "entities", restored)
	}

	reports := open311.New(a.Directory, o.o311Opts...)
	var newsSearch ports.NewsSource
	if cfg.Fetch.NewsSearchURL != "" {
		newsSearch = search.New(cfg.Fetch.NewsSearchURL, a.Directory, o.rssOpts...)
	}
	a.Aggregator = aggregator.New(
		aggregator.WithReportSource(reports),
		aggregator.WithUpdatesSource(reports),
		aggregator.WithNewsSources(rss.New(a.Directory, o.rssOpts...), newsSearch),
		aggregator.WithDirectory(a.Directory),
		aggregator.WithLogger(logger.With("component", "aggregator")),
		aggregator.WithMetrics(a.Metrics),
	)

	fetchOpts := aggregator.DefaultOptions()
	fetchOpts.MaxReports = cfg.Fetch.MaxReports
	fetchOpts.MaxNews = cfg.Fetch.MaxNews
	fetchOpts.Departments = true
	a.Queries, err = query.NewService(a.Store, a.Aggregator,
		query.WithFetchOptions(fetchOpts),
		query.WithRecentItemsLimit(cfg.Fetch.RecentItemsLimit),
		query.WithLogger(logger.With("component", "query")),
		query.WithMetrics(a.Metrics),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Lifecycle = lifecycle.New(true)
	a.Scheduler, err = scheduler.New(a.Queries, a.Lifecycle, policy,
		scheduler.WithInterval(cfg.RefreshInterval),
		scheduler.WithLogger(logger.With("component", "scheduler")),
		scheduler.WithMetrics(a.Metrics),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// Router mounts the council API, /metrics and the shared middleware.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recover(a.Logger))
	r.Use(middleware.Logger(a.Logger))

	h := handler.New(a.Queries, a.Store, a.Directory, a.Lifecycle, a.Scheduler, a.Logger.With("component", "handler"),
		handler.WithIncludeDepartments(a.Config.Fetch.IncludeDepartments))
	h.Register(r)
	r.Method(http.MethodGet, "/metrics", platformmetrics.Handler(a.Registry))
	return r
}

// Shutdown stops the scheduler, writes the cache one last time and closes
// the durable backend.
func (a *App) Shutdown(ctx context.Context) error {
	a.Scheduler.Stop()
	flushErr := a.Store.Flush(ctx)
	return errors.Join(flushErr, a.Close())
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openKV(ctx context.Context, cfg config.Config) (ports.KVStore, func() error, error) {
	switch cfg.Cache.Backend {
	case config.BackendMemory:
		return kvstore.NewMemory(), nil, nil
	case config.BackendFile:
		path := cfg.Cache.File
		if path == "" {
			var err error
			if path, err = kvstore.DefaultFilePath(); err != nil {
				return nil, nil, fmt.Errorf("resolve cache file: %w", err)
			}
		}
		f, err := kvstore.NewFile(path)
		if err != nil {
			return nil, nil, err
		}
		return f, nil, nil
	case config.BackendSQLite:
		db, err := kvstore.OpenSQLite(ctx, cfg.Cache.File)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	case config.BackendRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return kvstore.NewRedis(client.Client), client.Close, nil
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		kv := kvstore.NewPostgres(db)
		if err := kv.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return kv, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
