//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/record/cache"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/record/models"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/testutil/containers"
)

type CacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.Cache
}

func TestCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.cache = cache.New(s.redis.Client, time.Minute)
}

func (s *CacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func publicRecord() models.PublicRecord {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return models.PublicRecord{
		ID:        7,
		Owner:     "did:example:alice",
		Active:    true,
		Verified:  true,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(365 * 24 * time.Hour),
		NameBlob:  []byte("sealed-name"),
	}
}

func (s *CacheSuite) TestSetGetRoundTrip() {
	ctx := context.Background()

	_, ok := s.cache.Get(ctx, 7)
	s.False(ok)

	s.cache.Set(ctx, publicRecord())

	got, ok := s.cache.Get(ctx, 7)
	s.Require().True(ok)
	s.Equal(publicRecord(), got)
}

func (s *CacheSuite) TestInvalidate() {
	ctx := context.Background()
	s.cache.Set(ctx, publicRecord())

	s.cache.Invalidate(ctx, 7)

	_, ok := s.cache.Get(ctx, 7)
	s.False(ok)
}

func (s *CacheSuite) TestNilCacheIsNoOp() {
	var nilCache *cache.Cache
	ctx := context.Background()

	nilCache.Set(ctx, publicRecord())
	_, ok := nilCache.Get(ctx, 7)
	s.False(ok)
	nilCache.Invalidate(ctx, 7)
}
