//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"lookout/internal/ledger/models"
	"lookout/internal/ledger/ports"
	"lookout/internal/ledger/service"
	"lookout/internal/ledger/store"
	"lookout/pkg/platform/sentinel"
	"lookout/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
	service  *service.Service
}

func TestPostgresLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.Pool)
	svc, err := service.New(s.store)
	s.Require().NoError(err)
	s.service = svc
}

func (s *PostgresLedgerSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "ledger_transactions", "ledger_accounts")
	s.Require().NoError(err)
}

// TestConcurrentDebitsSerialized verifies that row locks prevent
// overdrawing under concurrent debits.
func (s *PostgresLedgerSuite) TestConcurrentDebitsSerialized() {
	ctx := context.Background()
	_, err := s.service.OpenAccount(ctx, "shared", 20, false)
	s.Require().NoError(err)

	const goroutines = 40
	var wg sync.WaitGroup
	var successCount atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.service.Debit(ctx, "shared", 1, "lookup"); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(20), successCount.Load())
	balance, err := s.service.Balance(ctx, "shared")
	s.Require().NoError(err)
	s.Zero(balance)

	d, err := s.service.Reconcile(ctx)
	s.Require().NoError(err)
	s.Empty(d)
}

func (s *PostgresLedgerSuite) TestRollbackOnError() {
	ctx := context.Background()
	_, err := s.service.OpenAccount(ctx, "u", 5, false)
	s.Require().NoError(err)

	boom := errors.New("boom")
	err = s.store.RunInTx(ctx, "u", func(tx ports.TxStore) error {
		acc, err := tx.GetAccountForUpdate(ctx, "u")
		if err != nil {
			return err
		}
		acc.Balance = 0
		if err := tx.UpdateAccount(ctx, acc); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	balance, err := s.service.Balance(ctx, "u")
	s.Require().NoError(err)
	s.Equal(int64(5), balance)
}

func (s *PostgresLedgerSuite) TestEachRunOpensItsOwnTransaction() {
	ctx := context.Background()
	_, err := s.service.OpenAccount(ctx, "u", 5, false)
	s.Require().NoError(err)

	boom := errors.New("boom")
	err = s.store.RunInTx(ctx, "u", func(outer ports.TxStore) error {
		acc, err := outer.GetAccountForUpdate(ctx, "u")
		if err != nil {
			return err
		}
		acc.Balance = 1
		if err := outer.UpdateAccount(ctx, acc); err != nil {
			return err
		}
		return boom
	})
	s.Require().ErrorIs(err, boom)

	err = s.store.RunInTx(ctx, "u", func(tx ports.TxStore) error {
		acc, err := tx.GetAccountForUpdate(ctx, "u")
		if err != nil {
			return err
		}
		s.Equal(int64(5), acc.Balance, "rolled back write is not visible")
		return nil
	})
	s.NoError(err)
}

func (s *PostgresLedgerSuite) TestCancelledContextNeverBegins() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.store.RunInTx(ctx, "u", func(ports.TxStore) error {
		called = true
		return nil
	})
	s.Error(err)
	s.False(called)
}

func (s *PostgresLedgerSuite) TestConstraintsAndLookups() {
	ctx := context.Background()

	err := s.store.RunInTx(ctx, "ghost", func(tx ports.TxStore) error {
		_, err := tx.GetAccountForUpdate(ctx, "ghost")
		return err
	})
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.service.OpenAccount(ctx, "u", 0, false)
	s.Require().NoError(err)
	err = s.store.RunInTx(ctx, "u", func(tx ports.TxStore) error {
		return tx.InsertAccount(ctx, &models.Account{UserID: "u", CreatedAt: time.Now(), UpdatedAt: time.Now()})
	})
	s.ErrorIs(err, sentinel.ErrConflict)

	err = s.store.RunInTx(ctx, "nobody", func(tx ports.TxStore) error {
		return tx.AppendTransaction(ctx, &models.Transaction{
			ID: uuid.New(), UserID: "nobody", Amount: 1, Type: models.TypeReward, CreatedAt: time.Now(),
		})
	})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresLedgerSuite) TestHistoryAndStats() {
	ctx := context.Background()
	_, err := s.service.OpenAccount(ctx, "a", 10, false)
	s.Require().NoError(err)
	_, err = s.service.Debit(ctx, "a", 3, "lookup")
	s.Require().NoError(err)
	_, err = s.service.Credit(ctx, "a", 2, models.TypeReward, "bonus", "op-1")
	s.Require().NoError(err)

	page, err := s.service.History(ctx, models.HistoryFilter{UserID: "a"})
	s.Require().NoError(err)
	s.Equal(3, page.Total)
	s.Equal(models.TypeReward, page.Transactions[0].Type)
	s.Require().NotNil(page.Transactions[0].OperatorID)

	st, err := s.service.Stats(ctx)
	s.Require().NoError(err)
	s.Equal(int64(10), st.TotalRecharge)
	s.Equal(int64(3), st.TotalConsumption)
	s.Equal(int64(3), st.TodayConsumption)
	s.Equal(int64(2), st.TotalRewards)
	s.Equal(int64(9), st.TotalBalance)
	s.Equal(1, st.AccountsWithBalance)
}
