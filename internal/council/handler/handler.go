package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"councilwatch/internal/council/cache"
	"councilwatch/internal/council/directory"
	"councilwatch/internal/council/query"
	dErrors "councilwatch/pkg/domain-errors"
	"councilwatch/pkg/platform/httputil"
	"councilwatch/pkg/platform/sentinel"
	"councilwatch/pkg/requestcontext"
)

// defaultAwait bounds how long a summary request waits for a first fetch.
const defaultAwait = 30 * time.Second

// Queries opens the read models served over HTTP. *query.Service satisfies it.
type Queries interface {
	Aggregate(ctx context.Context, council string, opts query.AggregateOptions) *query.AggregateQuery
	RecentItems(ctx context.Context, council string, filter query.RecentFilter) *query.RecentItemsQuery
	Refresh(ctx context.Context, council string) error
	LastUpdated(council string) time.Time
}

// Cache is the admin side of the entity cache.
type Cache interface {
	Clear(ctx context.Context, key string) error
	Stats() cache.Stats
}

// Directory resolves the councils this service knows about.
type Directory interface {
	Get(council string) (directory.Council, bool)
}

// AppState is the foreground/background flag the scheduler observes.
type AppState interface {
	IsForeground() bool
	SetForeground(foreground bool)
}

// Scheduler tracks the council kept fresh in the foreground.
type Scheduler interface {
	SetActiveKey(council string)
	ActiveKey() string
}

// Handler wires council endpoints to the query service, the cache and the scheduler.
type Handler struct {
	queries   Queries
	cache     Cache
	directory Directory
	app       AppState
	scheduler Scheduler
	logger    *slog.Logger
	await     time.Duration

	includeDepartments bool
}

type Option func(*Handler)

// WithIncludeDepartments sets whether summaries carry the department
// directory when the request does not say.
func WithIncludeDepartments(include bool) Option {
	return func(h *Handler) { h.includeDepartments = include }
}

// New constructs a council handler with its dependencies.
func New(queries Queries, c Cache, dir Directory, app AppState, sched Scheduler, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		queries:   queries,
		cache:     c,
		directory: dir,
		app:       app,
		scheduler: sched,
		logger:    logger,
		await:     defaultAwait,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts council endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleHealth)

	r.Route("/councils/{council}", func(r chi.Router) {
		r.Get("/summary", h.HandleSummary)
		r.Get("/reports", h.HandleReports)
		r.Post("/refresh", h.HandleRefresh)
	})

	r.Put("/app/state", h.HandleAppState)
	r.Put("/app/active-council", h.HandleActiveCouncil)

	r.Get("/cache/stats", h.HandleCacheStats)
	r.Delete("/cache", h.HandleClearCache)
	r.Delete("/cache/{council}", h.HandleClearCache)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleSummary handles GET /councils/{council}/summary. When nothing
// servable is cached it waits for the first fetch to finish.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.council(w, r)
	if !ok {
		return
	}
	includeDepartments, err := parseBool(r.URL.Query().Get("departments"), h.includeDepartments)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "departments must be a boolean"))
		return
	}

	q := h.queries.Aggregate(ctx, c.Key, query.AggregateOptions{IncludeDepartments: includeDepartments})
	defer q.Close()

	waitCtx, cancel := context.WithTimeout(ctx, h.await)
	defer cancel()
	st := q.Await(waitCtx)

	httputil.WriteJSON(w, http.StatusOK, SummaryResponse{
		Council:         c.Key,
		Name:            c.Name,
		SupportsReports: c.Reports,
		State:           st,
	})
}

// HandleReports handles GET /councils/{council}/reports.
func (h *Handler) HandleReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.council(w, r)
	if !ok {
		return
	}
	filter, err := parseRecentFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	q := h.queries.RecentItems(ctx, c.Key, filter)
	defer q.Close()

	waitCtx, cancel := context.WithTimeout(ctx, h.await)
	defer cancel()
	st := q.Await(waitCtx)

	httputil.WriteJSON(w, http.StatusOK, ReportsResponse{
		Council:         c.Key,
		SupportsReports: c.Reports,
		State:           st,
	})
}

// HandleRefresh handles POST /councils/{council}/refresh.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	c, ok := h.council(w, r)
	if !ok {
		return
	}
	start := time.Now()
	if err := h.queries.Refresh(ctx, c.Key); err != nil {
		h.logger.WarnContext(ctx, "council refresh failed",
			"request_id", requestID,
			"council", c.Key,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, query.MessageFetchFailed))
		return
	}
	h.logger.InfoContext(ctx, "council refreshed",
		"request_id", requestID,
		"council", c.Key,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, RefreshResponse{
		Council:     c.Key,
		LastUpdated: h.queries.LastUpdated(c.Key),
	})
}

// HandleAppState handles PUT /app/state.
func (h *Handler) HandleAppState(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[AppStateRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.app.SetForeground(*req.Foreground)
	httputil.WriteJSON(w, http.StatusOK, h.appResponse())
}

// HandleActiveCouncil handles PUT /app/active-council. An empty council
// clears the active key.
func (h *Handler) HandleActiveCouncil(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[ActiveCouncilRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	key := req.Normalized()
	if key != "" {
		c, ok := h.directory.Get(key)
		if !ok {
			httputil.WriteError(w, unknownCouncil(key))
			return
		}
		key = c.Key
	}
	h.scheduler.SetActiveKey(key)
	httputil.WriteJSON(w, http.StatusOK, h.appResponse())
}

// HandleCacheStats handles GET /cache/stats.
func (h *Handler) HandleCacheStats(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.cache.Stats())
}

// HandleClearCache handles DELETE /cache and DELETE /cache/{council}.
func (h *Handler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var key string
	if chi.URLParam(r, "council") != "" {
		c, ok := h.council(w, r)
		if !ok {
			return
		}
		key = c.Key
	}
	if err := h.cache.Clear(ctx, key); err != nil {
		h.logger.ErrorContext(ctx, "cache clear failed",
			"request_id", requestcontext.RequestID(ctx),
			"council", key,
			"error", err,
		)
		code := dErrors.CodeInternal
		if errors.Is(err, sentinel.ErrUnavailable) {
			code = dErrors.CodeUnavailable
		}
		httputil.WriteError(w, dErrors.Wrap(err, code, "cache clear failed"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) council(w http.ResponseWriter, r *http.Request) (directory.Council, bool) {
	key := chi.URLParam(r, "council")
	c, ok := h.directory.Get(key)
	if !ok {
		httputil.WriteError(w, unknownCouncil(key))
		return directory.Council{}, false
	}
	return c, true
}

func (h *Handler) appResponse() AppResponse {
	return AppResponse{
		Foreground:    h.app.IsForeground(),
		ActiveCouncil: h.scheduler.ActiveKey(),
	}
}

func unknownCouncil(key string) error {
	return dErrors.New(dErrors.CodeNotFound, "unknown council: "+key)
}

func parseBool(raw string, fallback bool) (bool, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseBool(raw)
}
