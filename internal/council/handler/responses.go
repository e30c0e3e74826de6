package handler

import (
	"time"

	"councilwatch/internal/council/models"
	"councilwatch/internal/council/query"
)

// SummaryResponse is the body of GET /councils/{council}/summary.
type SummaryResponse struct {
	Council         string `json:"council"`
	Name            string `json:"name"`
	SupportsReports bool   `json:"supportsReports"`
	query.State[*models.AggregateResult]
}

// ReportsResponse is the body of GET /councils/{council}/reports.
type ReportsResponse struct {
	Council         string `json:"council"`
	SupportsReports bool   `json:"supportsReports"`
	query.State[[]models.ReportItem]
}

type RefreshResponse struct {
	Council     string    `json:"council"`
	LastUpdated time.Time `json:"lastUpdated,omitzero"`
}

type AppResponse struct {
	Foreground    bool   `json:"foreground"`
	ActiveCouncil string `json:"activeCouncil,omitempty"`
}
