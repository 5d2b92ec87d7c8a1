package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"lookout/internal/ledger/models"
	"lookout/internal/ledger/ports"
	pkgerrors "lookout/pkg/domain-errors"
	"lookout/pkg/platform/sentinel"
)

// Operations on one account are serialized by one of numShards mutexes
// chosen by a hash of the user ID, so unrelated accounts rarely contend.
const numShards = 128

// defaultTxTimeout is the maximum duration for a ledger transaction.
const defaultTxTimeout = 5 * time.Second

// InMemory is a ledger store for tests and single-node deployments.
type InMemory struct {
	shards  [numShards]sync.Mutex
	timeout time.Duration

	mu       sync.RWMutex
	accounts map[string]models.Account
	txns     []models.Transaction
}

// NewInMemory creates an empty in-memory ledger store.
func NewInMemory() *InMemory {
	return &InMemory{accounts: make(map[string]models.Account)}
}

// RunInTx holds the account's shard lock while fn runs. fn sees its own
// writes; they become visible to others only if fn returns nil.
func (s *InMemory) RunInTx(ctx context.Context, userID string, fn func(tx ports.TxStore) error) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := s.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := &s.shards[hashString(userID)%numShards]
	shard.Lock()
	defer shard.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	staged := &stagedTx{base: s, accounts: make(map[string]stagedAccount)}
	if err := fn(staged); err != nil {
		return err
	}
	s.commit(staged)
	return nil
}

func (s *InMemory) commit(staged *stagedTx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, acc := range staged.accounts {
		if acc.dirty {
			s.accounts[id] = acc.account
		}
	}
	s.txns = append(s.txns, staged.txns...)
}

// GetAccount returns a copy of the account.
func (s *InMemory) GetAccount(_ context.Context, userID string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &acc, nil
}

// ListTransactions returns a page of transactions, newest first.
func (s *InMemory) ListTransactions(_ context.Context, filter models.HistoryFilter) (models.Page, error) {
	filter = filter.Normalize()
	s.mu.RLock()
	matched := make([]models.Transaction, 0)
	for _, t := range s.txns {
		if filter.UserID != "" && t.UserID != filter.UserID {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		matched = append(matched, t)
	}
	s.mu.RUnlock()

	// Appended in commit order; reverse for newest first and keep ties stable.
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page := models.Page{Total: len(matched), Limit: filter.Limit, Offset: filter.Offset, Transactions: []models.Transaction{}}
	if filter.Offset >= len(matched) {
		return page, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	page.Transactions = append(page.Transactions, matched[filter.Offset:end]...)
	return page, nil
}

// Stats aggregates every account and transaction.
func (s *InMemory) Stats(_ context.Context, todayStart time.Time) (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st models.Stats
	for _, t := range s.txns {
		switch {
		case t.Type == models.TypeRecharge && t.Amount > 0:
			st.TotalRecharge += t.Amount
		case t.Type == models.TypeReward && t.Amount > 0:
			st.TotalRewards += t.Amount
		case t.Type == models.TypeConsumption && t.Amount < 0:
			st.TotalConsumption -= t.Amount
			if !t.CreatedAt.Before(todayStart) {
				st.TodayConsumption -= t.Amount
			}
		}
	}
	for _, acc := range s.accounts {
		st.TotalBalance += acc.Balance
		if acc.Balance > 0 {
			st.AccountsWithBalance++
		}
	}
	if n := len(s.accounts); n > 0 {
		st.AverageBalance = float64(st.TotalBalance) / float64(n)
	}
	return st, nil
}

// Balances pairs each account balance with the sum of its transactions,
// ordered by user ID.
func (s *InMemory) Balances(_ context.Context) ([]models.Discrepancy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sums := make(map[string]int64, len(s.accounts))
	for _, t := range s.txns {
		sums[t.UserID] += t.Amount
	}
	out := make([]models.Discrepancy, 0, len(s.accounts))
	for id, acc := range s.accounts {
		out = append(out, models.Discrepancy{UserID: id, Balance: acc.Balance, Sum: sums[id]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

type stagedAccount struct {
	account models.Account
	exists  bool
	dirty   bool
}

// stagedTx buffers writes until RunInTx commits them.
type stagedTx struct {
	base     *InMemory
	accounts map[string]stagedAccount
	txns     []models.Transaction
}

func (t *stagedTx) load(userID string) stagedAccount {
	if acc, ok := t.accounts[userID]; ok {
		return acc
	}
	t.base.mu.RLock()
	acc, ok := t.base.accounts[userID]
	t.base.mu.RUnlock()
	staged := stagedAccount{account: acc, exists: ok}
	t.accounts[userID] = staged
	return staged
}

func (t *stagedTx) GetAccountForUpdate(_ context.Context, userID string) (*models.Account, error) {
	acc := t.load(userID)
	if !acc.exists {
		return nil, sentinel.ErrNotFound
	}
	out := acc.account
	return &out, nil
}

func (t *stagedTx) InsertAccount(_ context.Context, account *models.Account) error {
	acc := t.load(account.UserID)
	if acc.exists {
		return sentinel.ErrConflict
	}
	t.accounts[account.UserID] = stagedAccount{account: *account, exists: true, dirty: true}
	return nil
}

func (t *stagedTx) UpdateAccount(_ context.Context, account *models.Account) error {
	acc := t.load(account.UserID)
	if !acc.exists {
		return sentinel.ErrNotFound
	}
	t.accounts[account.UserID] = stagedAccount{account: *account, exists: true, dirty: true}
	return nil
}

func (t *stagedTx) AppendTransaction(_ context.Context, txn *models.Transaction) error {
	if !t.load(txn.UserID).exists {
		return sentinel.ErrNotFound
	}
	t.txns = append(t.txns, *txn)
	return nil
}

// hashString uses FNV-1a.
func hashString(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
