//go:build integration

package store_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"lookout/internal/lookup/cache/store"
	"lookout/internal/lookup/models"
	"lookout/pkg/requestcontext"
	"lookout/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "profile_cache"))
}

func (s *PostgresStoreSuite) TestUpsertAndExpiry() {
	now := time.Now().UTC()
	ctx := requestcontext.WithTime(context.Background(), now)
	entry := store.Entry{
		Key:       "k",
		Kind:      models.KindEmail,
		Profile:   models.MergedProfile{Identifier: "jane@a.com", Kind: models.KindEmail},
		ExpiresAt: now.Add(time.Minute),
		UpdatedAt: now,
	}
	s.Require().NoError(s.store.Put(ctx, entry))

	got, err := s.store.Get(ctx, "k")
	s.Require().NoError(err)
	s.Equal(models.KindEmail, got.Kind)
	s.Equal("jane@a.com", got.Profile.Identifier)

	_, err = s.store.Get(requestcontext.WithTime(context.Background(), now.Add(time.Minute)), "k")
	s.ErrorIs(err, store.ErrNotFound)

	n, err := s.store.PurgeExpired(requestcontext.WithTime(context.Background(), now.Add(time.Minute)))
	s.Require().NoError(err)
	s.Equal(1, n)
}

// TestConcurrentUpsert verifies that concurrent writes on one key leave a
// single complete row.
func (s *PostgresStoreSuite) TestConcurrentUpsert() {
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)
	const goroutines = 30

	var wg sync.WaitGroup
	var successCount atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.store.Put(ctx, store.Entry{
				Key:       "shared",
				Kind:      models.KindPhone,
				Profile:   models.MergedProfile{Identifier: fmt.Sprintf("writer-%d", i)},
				ExpiresAt: expires,
				UpdatedAt: time.Now(),
			})
			if err == nil {
				successCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(goroutines), successCount.Load())
	got, err := s.store.Get(ctx, "shared")
	s.Require().NoError(err)
	s.Contains(got.Profile.Identifier, "writer-")
}

func (s *PostgresStoreSuite) TestInvalidateBatch() {
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)
	for _, k := range []string{"a", "b", "c"} {
		s.Require().NoError(s.store.Put(ctx, store.Entry{Key: k, Kind: models.KindPhone, ExpiresAt: expires, UpdatedAt: time.Now()}))
	}

	s.Require().NoError(s.store.Invalidate(ctx, []string{"a", "c"}))

	_, err := s.store.Get(ctx, "a")
	s.ErrorIs(err, store.ErrNotFound)
	_, err = s.store.Get(ctx, "b")
	s.NoError(err)
}
