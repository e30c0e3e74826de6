package aggregator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"councilwatch/internal/council/metrics"
	"councilwatch/internal/council/models"
	"councilwatch/internal/council/ports/mocks"
)

type AggregatorSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	reports   *mocks.MockReportSource
	primary   *mocks.MockNewsSource
	secondary *mocks.MockNewsSource
	updates   *mocks.MockUpdatesSource
	directory *mocks.MockDepartmentDirectory
	metrics   *metrics.Metrics
	agg       *Aggregator
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

func (s *AggregatorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.reports = mocks.NewMockReportSource(s.ctrl)
	s.primary = mocks.NewMockNewsSource(s.ctrl)
	s.secondary = mocks.NewMockNewsSource(s.ctrl)
	s.updates = mocks.NewMockUpdatesSource(s.ctrl)
	s.directory = mocks.NewMockDepartmentDirectory(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.agg = New(
		WithReportSource(s.reports),
		WithNewsSources(s.primary, s.secondary),
		WithUpdatesSource(s.updates),
		WithDirectory(s.directory),
		WithMetrics(s.metrics),
	)
}

func reportsWith(open, fixed int) []models.ReportItem {
	items := make([]models.ReportItem, 0, open+fixed)
	for i := 0; i < open; i++ {
		items = append(items, models.ReportItem{ID: fmt.Sprintf("o%d", i), Title: "Pothole", Status: models.StatusOpen, Source: "fixmystreet"})
	}
	for i := 0; i < fixed; i++ {
		items = append(items, models.ReportItem{ID: fmt.Sprintf("f%d", i), Title: "Streetlight", Status: models.StatusFixed, Source: "fixmystreet"})
	}
	return items
}

func newsItems(prefix string, n int) []models.NewsItem {
	items := make([]models.NewsItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, models.NewsItem{ID: fmt.Sprintf("%s%d", prefix, i), Title: prefix})
	}
	return items
}

func newsOnly(maxNews int) Options {
	return Options{News: true, MaxNews: maxNews}
}

// =============================================================================
// Hard errors
// =============================================================================

func (s *AggregatorSuite) TestEmptyKeyIsHardError() {
	_, err := s.agg.Fetch(context.Background(), "", DefaultOptions())
	s.ErrorIs(err, ErrInvalidEntityKey)

	_, err = s.agg.FetchRecentItems(context.Background(), "", 10)
	s.ErrorIs(err, ErrInvalidEntityKey)
}

// =============================================================================
// Reports and stats
// =============================================================================

func (s *AggregatorSuite) TestStatsFromUnfilteredReports() {
	ctx := context.Background()
	s.reports.EXPECT().Supports("Camden").Return(true)
	s.reports.EXPECT().FetchRecent(gomock.Any(), "Camden", models.ReportStatus(""), 20).Return(reportsWith(15, 5), nil)

	res, err := s.agg.Fetch(ctx, "Camden", Options{Reports: true, MaxReports: 20})
	s.Require().NoError(err)
	s.Len(res.Reports, 20)
	s.Equal(models.ReportStats{Total: 20, Open: 15, Fixed: 5}, res.Stats)
	s.Equal("Camden", res.EntityName)
}

func (s *AggregatorSuite) TestStatsCountInvestigatingAndClosed() {
	items := []models.ReportItem{
		{ID: "1", Status: models.StatusInvestigating},
		{ID: "2", Status: models.StatusPlanned},
		{ID: "3", Status: models.StatusClosed},
	}
	s.Equal(models.ReportStats{Total: 3, Open: 1, Fixed: 1}, models.ComputeStats(items))
}

func (s *AggregatorSuite) TestUnsupportedReportSourceIsNotAnError() {
	s.reports.EXPECT().Supports("Nowhere").Return(false)
	s.updates.EXPECT().Supports("Nowhere").Return(false)
	s.primary.EXPECT().Fetch(gomock.Any(), "Nowhere", DefaultMaxNews).Return(newsItems("p", DefaultMaxNews), nil)

	res, err := s.agg.Fetch(context.Background(), "Nowhere", DefaultOptions())
	s.Require().NoError(err)
	s.Empty(res.Reports)
	s.NotNil(res.Reports)
	s.Empty(res.Updates)
	s.Len(res.News, DefaultMaxNews)
}

// =============================================================================
// News priority and truncation
// =============================================================================

func (s *AggregatorSuite) TestSecondarySkippedWhenPrimarySuffices() {
	s.primary.EXPECT().Fetch(gomock.Any(), "Camden", 5).Return(newsItems("p", 5), nil)

	res, err := s.agg.Fetch(context.Background(), "Camden", newsOnly(5))
	s.Require().NoError(err)
	s.Len(res.News, 5)
}

func (s *AggregatorSuite) TestTruncationKeepsPrimaryFirst() {
	s.primary.EXPECT().Fetch(gomock.Any(), "Camden", 5).Return(newsItems("p", 2), nil)
	s.secondary.EXPECT().Fetch(gomock.Any(), "Camden", 3).Return(newsItems("s", 10), nil)

	res, err := s.agg.Fetch(context.Background(), "Camden", newsOnly(5))
	s.Require().NoError(err)
	s.Require().Len(res.News, 5)
	s.Equal([]string{"p0", "p1", "s0", "s1", "s2"}, newsIDs(res.News))
}

func (s *AggregatorSuite) TestSecondaryRepeatsOfPrimaryAreDropped() {
	s.primary.EXPECT().Fetch(gomock.Any(), "Camden", 4).Return(newsItems("p", 2), nil)
	s.secondary.EXPECT().Fetch(gomock.Any(), "Camden", 2).Return([]models.NewsItem{
		{ID: "p1", Title: "syndicated"},
		{ID: "s0"},
	}, nil)

	res, err := s.agg.Fetch(context.Background(), "Camden", newsOnly(4))
	s.Require().NoError(err)
	s.Equal([]string{"p0", "p1", "s0"}, newsIDs(res.News))
	s.Equal("p", res.News[1].Title)
}

func (s *AggregatorSuite) TestPrimaryOverflowTruncated() {
	s.primary.EXPECT().Fetch(gomock.Any(), "Camden", 3).Return(newsItems("p", 7), nil)

	res, err := s.agg.Fetch(context.Background(), "Camden", newsOnly(3))
	s.Require().NoError(err)
	s.Equal([]string{"p0", "p1", "p2"}, newsIDs(res.News))
}

// =============================================================================
// Partial and total failure
// =============================================================================

func (s *AggregatorSuite) TestSecondaryFailureIsInvisible() {
	s.primary.EXPECT().Fetch(gomock.Any(), "Camden", 5).Return(newsItems("p", 3), nil)
	s.secondary.EXPECT().Fetch(gomock.Any(), "Camden", 2).Return(nil, errors.New("search quota exceeded"))

	res, err := s.agg.Fetch(context.Background(), "Camden", newsOnly(5))
	s.Require().NoError(err)
	s.Equal([]string{"p0", "p1", "p2"}, newsIDs(res.News))
	s.Equal(1.0, promtest.ToFloat64(s.metrics.SourceFailures.WithLabelValues(SourceSecondaryNews)))
}

func (s *AggregatorSuite) TestPrimaryFailureFallsBackToSecondary() {
	s.primary.EXPECT().Fetch(gomock.Any(), "Camden", 4).Return(nil, errors.New("feed timeout"))
	s.secondary.EXPECT().Fetch(gomock.Any(), "Camden", 4).Return(newsItems("s", 4), nil)

	res, err := s.agg.Fetch(context.Background(), "Camden", newsOnly(4))
	s.Require().NoError(err)
	s.Len(res.News, 4)
}

func (s *AggregatorSuite) TestReportFailureKeepsNews() {
	s.reports.EXPECT().Supports("Camden").Return(true)
	s.reports.EXPECT().FetchRecent(gomock.Any(), "Camden", gomock.Any(), gomock.Any()).Return(nil, errors.New("502"))
	s.updates.EXPECT().Supports("Camden").Return(false)
	s.primary.EXPECT().Fetch(gomock.Any(), "Camden", DefaultMaxNews).Return(newsItems("p", DefaultMaxNews), nil)

	res, err := s.agg.Fetch(context.Background(), "Camden", DefaultOptions())
	s.Require().NoError(err)
	s.Empty(res.Reports)
	s.Equal(models.ReportStats{}, res.Stats)
	s.Len(res.News, DefaultMaxNews)
}

func (s *AggregatorSuite) TestAllSourcesFailed() {
	boom := errors.New("boom")
	s.reports.EXPECT().Supports("Camden").Return(true)
	s.reports.EXPECT().FetchRecent(gomock.Any(), "Camden", gomock.Any(), gomock.Any()).Return(nil, boom)
	s.updates.EXPECT().Supports("Camden").Return(true)
	s.updates.EXPECT().FetchRecentlyClosed(gomock.Any(), "Camden", UpdatesLimit).Return(nil, boom)
	s.primary.EXPECT().Fetch(gomock.Any(), "Camden", gomock.Any()).Return(nil, boom)
	s.secondary.EXPECT().Fetch(gomock.Any(), "Camden", gomock.Any()).Return(nil, boom)

	res, err := s.agg.Fetch(context.Background(), "Camden", DefaultOptions())
	s.ErrorIs(err, ErrAllSourcesFailed)
	s.Nil(res)
}

func (s *AggregatorSuite) TestNothingRequestedIsEmptySuccess() {
	res, err := s.agg.Fetch(context.Background(), "Camden", Options{})
	s.Require().NoError(err)
	s.Empty(res.Reports)
	s.Empty(res.News)
}

// =============================================================================
// Updates and departments
// =============================================================================

func (s *AggregatorSuite) TestUpdatesRelabelled() {
	s.updates.EXPECT().Supports("Camden").Return(true)
	s.updates.EXPECT().FetchRecentlyClosed(gomock.Any(), "Camden", UpdatesLimit).Return([]models.ReportItem{
		{ID: "c1", Title: "Broken bench", Description: "Replaced", Status: models.StatusClosed, Source: "fixmystreet"},
	}, nil)

	res, err := s.agg.Fetch(context.Background(), "Camden", Options{Updates: true})
	s.Require().NoError(err)
	s.Require().Len(res.Updates, 1)
	s.Equal("Fixed: Broken bench", res.Updates[0].Title)
	s.Equal("Replaced", res.Updates[0].Summary)
}

func (s *AggregatorSuite) TestDepartmentsOnlyWhenRequested() {
	dir := &models.DepartmentDirectory{Council: "Camden", Departments: []models.Department{{Name: "Waste"}}}

	s.Run("excluded by default", func() {
		res, err := s.agg.Fetch(context.Background(), "Camden", Options{})
		s.Require().NoError(err)
		s.Nil(res.Departments)
	})

	s.Run("included when opted in", func() {
		s.directory.EXPECT().Lookup("Camden").Return(dir, true)
		res, err := s.agg.Fetch(context.Background(), "Camden", Options{Departments: true})
		s.Require().NoError(err)
		s.Equal(dir, res.Departments)
	})

	s.Run("absent when no local row", func() {
		s.directory.EXPECT().Lookup("Atlantis").Return(nil, false)
		res, err := s.agg.Fetch(context.Background(), "Atlantis", Options{Departments: true})
		s.Require().NoError(err)
		s.Nil(res.Departments)
	})
}

// =============================================================================
// Recent items
// =============================================================================

func (s *AggregatorSuite) TestFetchRecentItems() {
	ctx := context.Background()

	s.Run("unsupported council yields empty list", func() {
		s.reports.EXPECT().Supports("Atlantis").Return(false)
		items, err := s.agg.FetchRecentItems(ctx, "Atlantis", 10)
		s.NoError(err)
		s.NotNil(items)
		s.Empty(items)
	})

	s.Run("failure is total", func() {
		s.reports.EXPECT().Supports("Camden").Return(true)
		s.reports.EXPECT().FetchRecent(gomock.Any(), "Camden", gomock.Any(), 10).Return(nil, errors.New("down"))
		_, err := s.agg.FetchRecentItems(ctx, "Camden", 10)
		s.ErrorIs(err, ErrAllSourcesFailed)
	})

	s.Run("returns fetched items", func() {
		s.reports.EXPECT().Supports("Camden").Return(true)
		s.reports.EXPECT().FetchRecent(gomock.Any(), "Camden", gomock.Any(), 10).Return(reportsWith(3, 1), nil)
		items, err := s.agg.FetchRecentItems(ctx, "Camden", 10)
		s.NoError(err)
		s.Len(items, 4)
	})
}

func newsIDs(items []models.NewsItem) []string {
	ids := make([]string, 0, len(items))
	for _, n := range items {
		ids = append(ids, n.ID)
	}
	return ids
}
