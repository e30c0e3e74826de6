//go:build integration

package kvstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"councilwatch/internal/council/kvstore"
	"councilwatch/internal/council/ports"
	"councilwatch/pkg/testutil/containers"
)

type PostgresSuite struct {
	contractSuite
	postgres *containers.PostgresContainer
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	s := new(PostgresSuite)
	s.newStore = func() ports.KVStore { return kvstore.NewPostgres(s.postgres.DB) }
	suite.Run(t, s)
}

func (s *PostgresSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.Require().NoError(kvstore.NewPostgres(s.postgres.DB).EnsureSchema(context.Background()))
}

func (s *PostgresSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background(), "council_cache_kv"))
}

func (s *PostgresSuite) TestEnsureSchemaIsIdempotent() {
	s.NoError(kvstore.NewPostgres(s.postgres.DB).EnsureSchema(context.Background()))
}
