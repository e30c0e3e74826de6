package kvstore_test

import (
	"context"

	"github.com/stretchr/testify/suite"

	"councilwatch/internal/council/ports"
	"councilwatch/pkg/platform/sentinel"
)

// contractSuite runs the behavior every ports.KVStore backend must share.
// Embedding suites set newStore.
type contractSuite struct {
	suite.Suite
	newStore func() ports.KVStore
}

func (s *contractSuite) TestGetMissingKeyReturnsNotFound() {
	store := s.newStore()
	_, err := store.Get(context.Background(), "absent")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *contractSuite) TestSetThenGet() {
	ctx := context.Background()
	store := s.newStore()
	s.Require().NoError(store.Set(ctx, "entity_cache", []byte(`{"camden":{}}`)))

	got, err := store.Get(ctx, "entity_cache")
	s.Require().NoError(err)
	s.Equal(`{"camden":{}}`, string(got))
}

func (s *contractSuite) TestSetOverwrites() {
	ctx := context.Background()
	store := s.newStore()
	s.Require().NoError(store.Set(ctx, "k", []byte("first")))
	s.Require().NoError(store.Set(ctx, "k", []byte("second")))

	got, err := store.Get(ctx, "k")
	s.Require().NoError(err)
	s.Equal("second", string(got))
}

func (s *contractSuite) TestDelete() {
	ctx := context.Background()
	store := s.newStore()
	s.Require().NoError(store.Set(ctx, "k", []byte("v")))
	s.Require().NoError(store.Delete(ctx, "k"))

	_, err := store.Get(ctx, "k")
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Run("deleting an absent key is not an error", func() {
		s.NoError(store.Delete(ctx, "never-set"))
	})
}

func (s *contractSuite) TestKeysAreIndependent() {
	ctx := context.Background()
	store := s.newStore()
	s.Require().NoError(store.Set(ctx, "a", []byte("1")))
	s.Require().NoError(store.Set(ctx, "b", []byte("2")))
	s.Require().NoError(store.Delete(ctx, "a"))

	got, err := store.Get(ctx, "b")
	s.Require().NoError(err)
	s.Equal("2", string(got))
}
