package kvstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"councilwatch/internal/council/kvstore"
	"councilwatch/internal/council/ports"
	"councilwatch/pkg/platform/sentinel"
)

type SQLiteSuite struct {
	contractSuite
	dir string
}

func TestSQLiteSuite(t *testing.T) {
	s := new(SQLiteSuite)
	s.newStore = func() ports.KVStore {
		store, err := kvstore.OpenSQLite(context.Background(), filepath.Join(s.T().TempDir(), "cache.db"))
		s.Require().NoError(err)
		s.T().Cleanup(func() { _ = store.Close() })
		return store
	}
	suite.Run(t, s)
}

func (s *SQLiteSuite) SetupTest() {
	s.dir = s.T().TempDir()
}

func (s *SQLiteSuite) TestSurvivesReopen() {
	ctx := context.Background()
	path := filepath.Join(s.dir, "nested", "cache.db")

	first, err := kvstore.OpenSQLite(ctx, path)
	s.Require().NoError(err)
	s.Require().NoError(first.Set(ctx, "entity_cache", []byte(`{"camden":{}}`)))
	s.Require().NoError(first.Close())

	second, err := kvstore.OpenSQLite(ctx, path)
	s.Require().NoError(err)
	defer second.Close()
	got, err := second.Get(ctx, "entity_cache")
	s.Require().NoError(err)
	s.Equal(`{"camden":{}}`, string(got))
	s.Equal(path, second.Path())
}

func (s *SQLiteSuite) TestClosedStoreIsUnavailable() {
	ctx := context.Background()
	store, err := kvstore.OpenSQLite(ctx, filepath.Join(s.dir, "cache.db"))
	s.Require().NoError(err)
	s.Require().NoError(store.Close())

	s.ErrorIs(store.Set(ctx, "k", []byte("v")), sentinel.ErrUnavailable)
	_, err = store.Get(ctx, "k")
	s.ErrorIs(err, sentinel.ErrUnavailable)
}
