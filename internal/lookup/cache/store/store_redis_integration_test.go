//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"lookout/internal/lookup/cache/store"
	"lookout/internal/lookup/models"
	"lookout/pkg/requestcontext"
	"lookout/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.Redis
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = store.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestRoundTripPreservesProfile() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	entry := store.Entry{
		Key:  "k1",
		Kind: models.KindPhone,
		Profile: models.MergedProfile{
			Identifier: "+14155550000",
			Kind:       models.KindPhone,
			Contacts:   &models.Contacts{Emails: []string{"Jane@A.com"}, Phones: []string{}},
		},
		ExpiresAt: now.Add(time.Hour),
		UpdatedAt: now,
	}
	s.Require().NoError(s.store.Put(ctx, entry))

	got, err := s.store.Get(ctx, "k1")
	s.Require().NoError(err)
	s.Equal("+14155550000", got.Profile.Identifier)
	s.Equal([]string{"Jane@A.com"}, got.Profile.Contacts.Emails)
	s.True(entry.ExpiresAt.Equal(got.ExpiresAt))

	ttl, err := s.redis.Client.PTTL(ctx, "lookout:profile:k1").Result()
	s.Require().NoError(err)
	s.Greater(ttl, 59*time.Minute)
}

func (s *RedisStoreSuite) TestExpiredEntryDeletesKey() {
	ctx := context.Background()
	now := time.Now()
	s.Require().NoError(s.store.Put(ctx, store.Entry{Key: "k", ExpiresAt: now.Add(time.Hour)}))
	s.Require().NoError(s.store.Put(ctx, store.Entry{Key: "k", ExpiresAt: now}))

	exists, err := s.redis.Client.Exists(ctx, "lookout:profile:k").Result()
	s.Require().NoError(err)
	s.Zero(exists)
}

func (s *RedisStoreSuite) TestRequestClockHonoured() {
	now := time.Now()
	s.Require().NoError(s.store.Put(context.Background(), store.Entry{Key: "k", ExpiresAt: now.Add(time.Minute)}))

	_, err := s.store.Get(requestcontext.WithTime(context.Background(), now.Add(time.Minute)), "k")
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *RedisStoreSuite) TestInvalidate() {
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)
	for _, k := range []string{"a", "b", "c"} {
		s.Require().NoError(s.store.Put(ctx, store.Entry{Key: k, ExpiresAt: expires}))
	}

	s.Require().NoError(s.store.Invalidate(ctx, []string{"a", "b"}))

	_, err := s.store.Get(ctx, "a")
	s.ErrorIs(err, store.ErrNotFound)
	_, err = s.store.Get(ctx, "c")
	s.NoError(err)
}
