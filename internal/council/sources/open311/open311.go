// Package open311 reads resident issue reports from a council's Open311
// GeoReport v2 endpoint. It serves both the report and the updates legs of
// the aggregator.
package open311

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"councilwatch/internal/council/models"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 4 << 20
	sourceName     = "open311"
)

// EndpointResolver maps a council to its GeoReport base URL.
type EndpointResolver interface {
	ReportsEndpoint(council string) (string, bool)
}

// Source satisfies ports.ReportSource and ports.UpdatesSource.
type Source struct {
	endpoints EndpointResolver
	client    *http.Client
}

type Option func(*Source)

func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) { s.client = c }
}

func New(endpoints EndpointResolver, opts ...Option) *Source {
	s := &Source{
		endpoints: endpoints,
		client:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) Supports(council string) bool {
	_, ok := s.endpoints.ReportsEndpoint(council)
	return ok
}

// FetchRecent returns up to limit reports in upstream order. An empty status
// means any status.
func (s *Source) FetchRecent(ctx context.Context, council string, status models.ReportStatus, limit int) ([]models.ReportItem, error) {
	requests, err := s.list(ctx, council, wireStatus(status))
	if err != nil {
		return nil, err
	}
	items := make([]models.ReportItem, 0, len(requests))
	for _, r := range requests {
		item := r.toReportItem()
		if status != "" && item.Status != status {
			continue
		}
		items = append(items, item)
		if limit > 0 && len(items) == limit {
			break
		}
	}
	return items, nil
}

// FetchRecentlyClosed returns up to limit resolved reports.
func (s *Source) FetchRecentlyClosed(ctx context.Context, council string, limit int) ([]models.ReportItem, error) {
	requests, err := s.list(ctx, council, "closed")
	if err != nil {
		return nil, err
	}
	items := make([]models.ReportItem, 0, len(requests))
	for _, r := range requests {
		item := r.toReportItem()
		if !item.Status.IsResolved() {
			continue
		}
		items = append(items, item)
		if limit > 0 && len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Source) list(ctx context.Context, council, status string) ([]serviceRequest, error) {
	base, ok := s.endpoints.ReportsEndpoint(council)
	if !ok {
		return nil, fmt.Errorf("no report endpoint for %s", council)
	}
	u, err := url.Parse(strings.TrimSuffix(base, "/") + "/requests.json")
	if err != nil {
		return nil, fmt.Errorf("report endpoint for %s: %w", council, err)
	}
	if status != "" {
		q := u.Query()
		q.Set("status", status)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch reports for %s: %w", council, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch reports for %s: unexpected status %d", council, resp.StatusCode)
	}

	var requests []serviceRequest
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&requests); err != nil {
		return nil, fmt.Errorf("decode reports for %s: %w", council, err)
	}
	return requests, nil
}

// wireStatus narrows the upstream query; GeoReport only knows open and closed.
func wireStatus(status models.ReportStatus) string {
	switch {
	case status == "":
		return ""
	case status.IsResolved():
		return "closed"
	default:
		return "open"
	}
}

type serviceRequest struct {
	ID          string `json:"service_request_id"`
	Status      string `json:"status"`
	StatusNotes string `json:"status_notes"`
	ServiceName string `json:"service_name"`
	Description string `json:"description"`
	RequestedAt string `json:"requested_datetime"`
	Address     string `json:"address"`
}

func (r serviceRequest) toReportItem() models.ReportItem {
	title := r.ServiceName
	if first, _, _ := strings.Cut(strings.TrimSpace(r.Description), "\n"); first != "" {
		title = first
	}
	item := models.ReportItem{
		ID:          r.ID,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(r.Description),
		Category:    strings.TrimSpace(r.ServiceName),
		Status:      r.reportStatus(),
		Location:    strings.TrimSpace(r.Address),
		Source:      sourceName,
	}
	if t, err := time.Parse(time.RFC3339, r.RequestedAt); err == nil {
		item.Date = t.UTC().Format(time.RFC3339)
	}
	return item
}

// reportStatus refines GeoReport's open/closed using the status notes many
// councils fill with their internal workflow state.
func (r serviceRequest) reportStatus() models.ReportStatus {
	notes := strings.ToLower(r.StatusNotes)
	if strings.EqualFold(r.Status, "closed") {
		if strings.Contains(notes, "fixed") {
			return models.StatusFixed
		}
		return models.StatusClosed
	}
	switch {
	case strings.Contains(notes, "investigat"):
		return models.StatusInvestigating
	case strings.Contains(notes, "planned"), strings.Contains(notes, "scheduled"):
		return models.StatusPlanned
	default:
		return models.StatusOpen
	}
}
