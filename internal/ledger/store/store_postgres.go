package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lookout/internal/ledger/models"
	"lookout/internal/ledger/ports"
	pkgerrors "lookout/pkg/domain-errors"
	"lookout/pkg/platform/sentinel"
)

// Postgres stores the ledger in ledger_accounts and ledger_transactions.
// RunInTx locks the account row with SELECT ... FOR UPDATE.
type Postgres struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPostgres constructs a PostgreSQL-backed ledger store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, timeout: defaultTxTimeout}
}

// RunInTx runs fn in one read-committed transaction. Rows are locked with
// SELECT ... FOR UPDATE inside fn, which serializes writers per account.
func (p *Postgres) RunInTx(ctx context.Context, _ string, fn func(tx ports.TxStore) error) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin ledger transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&postgresTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit ledger transaction: %w", err)
	}
	return nil
}

// GetAccount reads the account without locking.
func (p *Postgres) GetAccount(ctx context.Context, userID string) (*models.Account, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT user_id, balance, privileged, created_at, updated_at
		FROM ledger_accounts WHERE user_id = $1`, userID)
	return scanAccount(row)
}

// ListTransactions returns a page of transactions, newest first.
func (p *Postgres) ListTransactions(ctx context.Context, filter models.HistoryFilter) (models.Page, error) {
	filter = filter.Normalize()
	page := models.Page{Limit: filter.Limit, Offset: filter.Offset, Transactions: []models.Transaction{}}

	const where = `WHERE ($1 = '' OR user_id = $1) AND ($2 = '' OR type = $2)`
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_transactions `+where,
		filter.UserID, string(filter.Type),
	).Scan(&page.Total); err != nil {
		return models.Page{}, fmt.Errorf("count ledger transactions: %w", err)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, user_id, amount, type, reason, operator_id, balance_after, created_at
		FROM ledger_transactions `+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`,
		filter.UserID, string(filter.Type), filter.Limit, filter.Offset,
	)
	if err != nil {
		return models.Page{}, fmt.Errorf("list ledger transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t   models.Transaction
			typ string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &typ, &t.Reason, &t.OperatorID, &t.BalanceAfter, &t.CreatedAt); err != nil {
			return models.Page{}, fmt.Errorf("scan ledger transaction: %w", err)
		}
		t.Type = models.TransactionType(typ)
		page.Transactions = append(page.Transactions, t)
	}
	if err := rows.Err(); err != nil {
		return models.Page{}, fmt.Errorf("list ledger transactions: %w", err)
	}
	return page, nil
}

// Stats aggregates the ledger in two queries.
func (p *Postgres) Stats(ctx context.Context, todayStart time.Time) (models.Stats, error) {
	var st models.Stats
	err := p.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'recharge' AND amount > 0), 0)::bigint,
			COALESCE(-SUM(amount) FILTER (WHERE type = 'consumption' AND amount < 0), 0)::bigint,
			COALESCE(-SUM(amount) FILTER (WHERE type = 'consumption' AND amount < 0 AND created_at >= $1), 0)::bigint,
			COALESCE(SUM(amount) FILTER (WHERE type = 'reward' AND amount > 0), 0)::bigint
		FROM ledger_transactions`, todayStart,
	).Scan(&st.TotalRecharge, &st.TotalConsumption, &st.TodayConsumption, &st.TotalRewards)
	if err != nil {
		return models.Stats{}, fmt.Errorf("aggregate ledger transactions: %w", err)
	}

	err = p.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(balance), 0)::bigint,
			COALESCE(AVG(balance), 0)::float8,
			COUNT(*) FILTER (WHERE balance > 0)
		FROM ledger_accounts`,
	).Scan(&st.TotalBalance, &st.AverageBalance, &st.AccountsWithBalance)
	if err != nil {
		return models.Stats{}, fmt.Errorf("aggregate ledger accounts: %w", err)
	}
	return st, nil
}

// Balances pairs each account balance with the sum of its transactions.
func (p *Postgres) Balances(ctx context.Context) ([]models.Discrepancy, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT a.user_id, a.balance, COALESCE(SUM(t.amount), 0)::bigint
		FROM ledger_accounts a
		LEFT JOIN ledger_transactions t ON t.user_id = a.user_id
		GROUP BY a.user_id, a.balance
		ORDER BY a.user_id`)
	if err != nil {
		return nil, fmt.Errorf("sum ledger balances: %w", err)
	}
	defer rows.Close()

	var out []models.Discrepancy
	for rows.Next() {
		var d models.Discrepancy
		if err := rows.Scan(&d.UserID, &d.Balance, &d.Sum); err != nil {
			return nil, fmt.Errorf("scan ledger balance: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) GetAccountForUpdate(ctx context.Context, userID string) (*models.Account, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT user_id, balance, privileged, created_at, updated_at
		FROM ledger_accounts WHERE user_id = $1
		FOR UPDATE`, userID)
	return scanAccount(row)
}

func (t *postgresTx) InsertAccount(ctx context.Context, account *models.Account) error {
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO ledger_accounts (user_id, balance, privileged, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING`,
		account.UserID, account.Balance, account.Privileged, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (t *postgresTx) UpdateAccount(ctx context.Context, account *models.Account) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE ledger_accounts SET balance = $2, privileged = $3, updated_at = $4
		WHERE user_id = $1`,
		account.UserID, account.Balance, account.Privileged, account.UpdatedAt,
	)
	if err != nil {
		return translateConstraint(err, "update ledger account")
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (t *postgresTx) AppendTransaction(ctx context.Context, txn *models.Transaction) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO ledger_transactions (id, user_id, amount, type, reason, operator_id, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		txn.ID, txn.UserID, txn.Amount, string(txn.Type), txn.Reason, txn.OperatorID, txn.BalanceAfter, txn.CreatedAt,
	)
	if err != nil {
		return translateConstraint(err, "append ledger transaction")
	}
	return nil
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var acc models.Account
	if err := row.Scan(&acc.UserID, &acc.Balance, &acc.Privileged, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan ledger account: %w", err)
	}
	return &acc, nil
}

// translateConstraint maps check and foreign-key violations to domain errors.
func translateConstraint(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23514":
			return pkgerrors.Wrap(err, pkgerrors.CodeInvariantViolation, op)
		case "23503":
			return fmt.Errorf("%s: %w", op, sentinel.ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
