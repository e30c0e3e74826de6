// Package models defines the council data shapes shared by the aggregator,
// the entity cache and its consumers.
package models

import (
	"strings"
	"time"
)

// ReportStatus is the lifecycle state of a resident issue report.
type ReportStatus string

const (
	StatusOpen          ReportStatus = "open"
	StatusInvestigating ReportStatus = "investigating"
	StatusPlanned       ReportStatus = "planned"
	StatusFixed         ReportStatus = "fixed"
	StatusClosed        ReportStatus = "closed"
)

// IsValid reports whether s is one of the known statuses.
func (s ReportStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusInvestigating, StatusPlanned, StatusFixed, StatusClosed:
		return true
	}
	return false
}

// IsOpen reports whether the issue still counts as outstanding.
func (s ReportStatus) IsOpen() bool {
	return s == StatusOpen || s == StatusInvestigating
}

// IsResolved reports whether the issue counts as fixed.
func (s ReportStatus) IsResolved() bool {
	return s == StatusFixed || s == StatusClosed
}

// ParseReportStatus normalizes user input ("Fixed", " open ") into a status.
// ok is false when the input matches no known status.
func ParseReportStatus(raw string) (ReportStatus, bool) {
	s := ReportStatus(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.IsValid()
}

// ReportItem is a single resident issue report.
type ReportItem struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Status      ReportStatus `json:"status"`
	Date        string       `json:"date"`
	Location    string       `json:"location,omitempty"`
	Source      string       `json:"source"`
}

// NewsItem is a council news or update story.
type NewsItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Date      string `json:"date"`
	URL       string `json:"url"`
	ImageURL  string `json:"imageUrl,omitempty"`
	Source    string `json:"source"`
	Category  string `json:"category,omitempty"`
	AISummary string `json:"aiSummary,omitempty"`
}

// Department is one row of a council's contact directory.
type Department struct {
	Name  string `json:"name" yaml:"name"`
	Phone string `json:"phone,omitempty" yaml:"phone"`
	Email string `json:"email,omitempty" yaml:"email"`
	URL   string `json:"url,omitempty" yaml:"url"`
}

// DepartmentDirectory lists the departments of one council.
type DepartmentDirectory struct {
	Council     string       `json:"council"`
	Website     string       `json:"website,omitempty"`
	Departments []Department `json:"departments"`
}

// ReportStats summarizes the fetched (unfiltered) report set.
type ReportStats struct {
	Total int `json:"total"`
	Open  int `json:"open"`
	Fixed int `json:"fixed"`
}

// ComputeStats counts open and fixed reports.
func ComputeStats(reports []ReportItem) ReportStats {
	stats := ReportStats{Total: len(reports)}
	for _, r := range reports {
		switch {
		case r.Status.IsOpen():
			stats.Open++
		case r.Status.IsResolved():
			stats.Fixed++
		}
	}
	return stats
}

// AggregateResult is the merged snapshot of one council's data.
// A new value is produced on every successful fetch; it is never mutated in place.
type AggregateResult struct {
	EntityName  string               `json:"entityName"`
	Reports     []ReportItem         `json:"reports"`
	News        []NewsItem           `json:"news"`
	Updates     []NewsItem           `json:"updates"`
	Stats       ReportStats          `json:"stats"`
	Departments *DepartmentDirectory `json:"departments,omitempty"`
}

// CacheEntry pairs cached data with the epoch-millis time it was fetched.
// Entries are replaced whole, never partially updated.
type CacheEntry[T any] struct {
	Data      T     `json:"data"`
	Timestamp int64 `json:"timestamp"`
}

// NewCacheEntry stamps data with t.
func NewCacheEntry[T any](data T, t time.Time) CacheEntry[T] {
	return CacheEntry[T]{Data: data, Timestamp: t.UnixMilli()}
}

// FetchedAt returns the entry timestamp as a time.Time.
func (e CacheEntry[T]) FetchedAt() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// EntityCache holds the two independently fetched collections for one council.
type EntityCache struct {
	Aggregate   *CacheEntry[AggregateResult] `json:"aggregate,omitempty"`
	RecentItems *CacheEntry[[]ReportItem]    `json:"recentItems,omitempty"`
}

// IsEmpty reports whether neither collection is present.
func (c EntityCache) IsEmpty() bool {
	return c.Aggregate == nil && c.RecentItems == nil
}

// Kind names one of the cached collections.
type Kind string

const (
	KindAggregate   Kind = "aggregate"
	KindRecentItems Kind = "recentItems"
)
