// Package ports defines the upstream collaborators the council data core
// depends on. Implementations live outside the core (sources/, directory/,
// kvstore/); the core relies only on result shapes and failure behavior.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"councilwatch/internal/council/models"
)

// ReportSource serves resident issue reports for the councils it covers.
type ReportSource interface {
	// Supports reports whether the source has any data for the council.
	Supports(council string) bool

	// FetchRecent returns up to limit recent reports; an empty status means any status.
	FetchRecent(ctx context.Context, council string, status models.ReportStatus, limit int) ([]models.ReportItem, error)
}

// NewsSource serves council news stories.
type NewsSource interface {
	Fetch(ctx context.Context, council string, limit int) ([]models.NewsItem, error)
}

// UpdatesSource serves recently resolved reports.
type UpdatesSource interface {
	Supports(council string) bool
	FetchRecentlyClosed(ctx context.Context, council string, limit int) ([]models.ReportItem, error)
}

// DepartmentDirectory is a local, non-failing lookup of council contact rows.
type DepartmentDirectory interface {
	Lookup(council string) (*models.DepartmentDirectory, bool)
}

// KVStore is the durable key-value store backing the entity cache.
// Get returns sentinel.ErrNotFound when the key is absent.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
