package open311

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"councilwatch/internal/council/models"
)

const requestsJSON = `[
  {"service_request_id": "101", "status": "open", "status_notes": "", "service_name": "Fly-tipping",
   "description": "Mattress dumped on the pavement\nOutside number 4", "requested_datetime": "2026-03-01T08:30:00+01:00",
   "address": "Kentish Town Road"},
  {"service_request_id": "102", "status": "open", "status_notes": "Under investigation", "service_name": "Noise",
   "description": "", "requested_datetime": "not a date"},
  {"service_request_id": "103", "status": "closed", "status_notes": "Fixed by contractor", "service_name": "Potholes",
   "description": "Pothole on Camden Road", "requested_datetime": "2026-02-27T10:00:00Z"},
  {"service_request_id": "104", "status": "closed", "status_notes": "Duplicate", "service_name": "Graffiti",
   "description": "Tag on the bridge", "requested_datetime": "2026-02-26T10:00:00Z"},
  {"service_request_id": "105", "status": "open", "status_notes": "Repair scheduled", "service_name": "Street lights",
   "description": "Light out", "requested_datetime": "2026-02-25T10:00:00Z"}
]`

type endpoints map[string]string

func (e endpoints) ReportsEndpoint(council string) (string, bool) {
	u, ok := e[council]
	return u, ok
}

type Open311Suite struct {
	suite.Suite
	srv     *httptest.Server
	src     *Source
	mu      sync.Mutex
	queries []string
	status  int
}

func TestOpen311Suite(t *testing.T) {
	suite.Run(t, new(Open311Suite))
}

func (s *Open311Suite) SetupTest() {
	s.queries = nil
	s.status = http.StatusOK
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.queries = append(s.queries, r.URL.RawQuery)
		status := s.status
		s.mu.Unlock()
		if r.URL.Path != "/v2/requests.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(requestsJSON))
	}))
	s.src = New(endpoints{"camden": s.srv.URL + "/v2/"}, WithHTTPClient(s.srv.Client()))
}

func (s *Open311Suite) TearDownTest() {
	s.srv.Close()
}

func (s *Open311Suite) lastQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[len(s.queries)-1]
}

// =============================================================================
// FetchRecent Tests
// =============================================================================

func (s *Open311Suite) TestSupports() {
	s.True(s.src.Supports("camden"))
	s.False(s.src.Supports("hackney"))
}

func (s *Open311Suite) TestFetchRecentMapsRequests() {
	items, err := s.src.FetchRecent(context.Background(), "camden", "", 0)
	s.Require().NoError(err)
	s.Require().Len(items, 5)
	s.Empty(s.lastQuery(), "no status filter upstream")

	first := items[0]
	s.Equal("101", first.ID)
	s.Equal("Mattress dumped on the pavement", first.Title)
	s.Equal("Fly-tipping", first.Category)
	s.Equal(models.StatusOpen, first.Status)
	s.Equal("2026-03-01T07:30:00Z", first.Date)
	s.Equal("Kentish Town Road", first.Location)
	s.Equal(sourceName, first.Source)

	s.Run("title falls back to the service name", func() {
		s.Equal("Noise", items[1].Title)
		s.Empty(items[1].Date)
	})

	s.Run("status notes refine the status", func() {
		s.Equal(models.StatusInvestigating, items[1].Status)
		s.Equal(models.StatusFixed, items[2].Status)
		s.Equal(models.StatusClosed, items[3].Status)
		s.Equal(models.StatusPlanned, items[4].Status)
	})
}

func (s *Open311Suite) TestFetchRecentByStatus() {
	items, err := s.src.FetchRecent(context.Background(), "camden", models.StatusFixed, 10)
	s.Require().NoError(err)
	s.Equal("status=closed", s.lastQuery())
	s.Require().Len(items, 1)
	s.Equal("103", items[0].ID)
}

func (s *Open311Suite) TestFetchRecentLimit() {
	items, err := s.src.FetchRecent(context.Background(), "camden", "", 2)
	s.Require().NoError(err)
	s.Len(items, 2)
}

func (s *Open311Suite) TestFetchFailures() {
	s.Run("unknown council", func() {
		_, err := s.src.FetchRecent(context.Background(), "hackney", "", 5)
		s.ErrorContains(err, "no report endpoint")
	})

	s.Run("upstream error status", func() {
		s.mu.Lock()
		s.status = http.StatusBadGateway
		s.mu.Unlock()
		_, err := s.src.FetchRecent(context.Background(), "camden", "", 5)
		s.ErrorContains(err, "unexpected status 502")
	})
}

// =============================================================================
// FetchRecentlyClosed Tests
// =============================================================================

func (s *Open311Suite) TestFetchRecentlyClosed() {
	items, err := s.src.FetchRecentlyClosed(context.Background(), "camden", 5)
	s.Require().NoError(err)
	s.Equal("status=closed", s.lastQuery())
	s.Require().Len(items, 2)
	s.Equal("103", items[0].ID)
	s.Equal("104", items[1].ID)

	s.Run("limit", func() {
		items, err := s.src.FetchRecentlyClosed(context.Background(), "camden", 1)
		s.Require().NoError(err)
		s.Len(items, 1)
	})
}
