// Package ports declares the persistence contract of the usage ledger.
package ports

import (
	"context"
	"time"

	"lookout/internal/ledger/models"
)

// Store is the ledger persistence boundary. All balance mutations go
// through RunInTx.
type Store interface {
	// RunInTx runs fn atomically and serialized against every other
	// transaction for the same userID. Writes made through tx are discarded
	// when fn returns an error.
	RunInTx(ctx context.Context, userID string, fn func(tx TxStore) error) error

	// GetAccount returns the account without locking it.
	GetAccount(ctx context.Context, userID string) (*models.Account, error)
	ListTransactions(ctx context.Context, filter models.HistoryFilter) (models.Page, error)
	// Stats aggregates the ledger; today counts consumption at or after todayStart.
	Stats(ctx context.Context, todayStart time.Time) (models.Stats, error)
	// Balances returns each account's balance next to the sum of its
	// transaction amounts.
	Balances(ctx context.Context) ([]models.Discrepancy, error)
}

// TxStore is the view of the store inside a transaction.
type TxStore interface {
	// GetAccountForUpdate returns sentinel.ErrNotFound for an unknown account.
	GetAccountForUpdate(ctx context.Context, userID string) (*models.Account, error)
	// InsertAccount returns sentinel.ErrConflict if the account exists.
	InsertAccount(ctx context.Context, account *models.Account) error
	UpdateAccount(ctx context.Context, account *models.Account) error
	AppendTransaction(ctx context.Context, txn *models.Transaction) error
}
