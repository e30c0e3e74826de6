package kvstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"councilwatch/internal/council/kvstore"
	"councilwatch/internal/council/ports"
)

type MemorySuite struct {
	contractSuite
}

func TestMemorySuite(t *testing.T) {
	s := new(MemorySuite)
	s.newStore = func() ports.KVStore { return kvstore.NewMemory() }
	suite.Run(t, s)
}

func (s *MemorySuite) TestReturnedBytesAreCopies() {
	ctx := context.Background()
	store := kvstore.NewMemory()
	value := []byte("abc")
	s.Require().NoError(store.Set(ctx, "k", value))
	value[0] = 'x'

	got, err := store.Get(ctx, "k")
	s.Require().NoError(err)
	s.Equal("abc", string(got))

	got[1] = 'y'
	again, err := store.Get(ctx, "k")
	s.Require().NoError(err)
	s.Equal("abc", string(again))
}
