package query

import (
	"context"

	"councilwatch/internal/council/models"
)

// AggregateQuery is the live read model of one council's aggregate.
type AggregateQuery struct {
	w *watcher[*models.AggregateResult]
}

func (q *AggregateQuery) State() State[*models.AggregateResult] {
	return q.w.State()
}

func (q *AggregateQuery) Subscribe(fn Listener[*models.AggregateResult]) func() {
	return q.w.Subscribe(fn)
}

// Refresh refetches even if the cached entry is fresh.
func (q *AggregateQuery) Refresh(ctx context.Context) State[*models.AggregateResult] {
	return q.w.Refresh(ctx)
}

func (q *AggregateQuery) Await(ctx context.Context) State[*models.AggregateResult] {
	return q.w.Await(ctx)
}

func (q *AggregateQuery) Close() {
	q.w.Close()
}

// shapeAggregate returns a copy of cached shaped for the caller. The cache
// always keeps the department directory; list views leave it out.
func shapeAggregate(cached models.AggregateResult, opts AggregateOptions) *models.AggregateResult {
	out := cached
	if !opts.IncludeDepartments {
		out.Departments = nil
	}
	return &out
}
