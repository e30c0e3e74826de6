package query

import (
	"context"
	"strings"

	"councilwatch/internal/council/models"
)

// RecentFilter narrows the served recent-items list. Status matches case
// insensitively; an empty Status matches everything. Limit <= 0 means no limit.
type RecentFilter struct {
	Status string
	Limit  int
}

// Apply returns a filtered copy of items. items itself is never modified.
func (f RecentFilter) Apply(items []models.ReportItem) []models.ReportItem {
	status := strings.TrimSpace(f.Status)
	out := make([]models.ReportItem, 0, len(items))
	for _, item := range items {
		if status != "" && !strings.EqualFold(string(item.Status), status) {
			continue
		}
		out = append(out, item)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

// RecentItemsQuery is the live read model of one council's recent reports.
type RecentItemsQuery struct {
	w *watcher[[]models.ReportItem]
}

func (q *RecentItemsQuery) State() State[[]models.ReportItem] {
	return q.w.State()
}

func (q *RecentItemsQuery) Subscribe(fn Listener[[]models.ReportItem]) func() {
	return q.w.Subscribe(fn)
}

func (q *RecentItemsQuery) Refresh(ctx context.Context) State[[]models.ReportItem] {
	return q.w.Refresh(ctx)
}

func (q *RecentItemsQuery) Await(ctx context.Context) State[[]models.ReportItem] {
	return q.w.Await(ctx)
}

func (q *RecentItemsQuery) Close() {
	q.w.Close()
}
