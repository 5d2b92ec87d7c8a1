// Package service implements the usage ledger: per-account balances that
// lookups are charged against, with an append-only transaction history.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"lookout/internal/ledger/metrics"
	"lookout/internal/ledger/models"
	"lookout/internal/ledger/ports"
	dErrors "lookout/pkg/domain-errors"
	audit "lookout/pkg/platform/audit"
	"lookout/pkg/platform/audit/publisher"
	"lookout/pkg/platform/sentinel"
	"lookout/pkg/requestcontext"
)

// Store is the ledger persistence boundary.
type Store = ports.Store

type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor audit.Emitter
	newID   func() uuid.UUID
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditor(auditor audit.Emitter) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	svc := &Service{
		store:  store,
		logger: slog.Default(),
		newID:  uuid.New,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// OpenAccount creates an account. A positive initial balance is recorded as
// a recharge so the balance always equals the sum of transactions.
func (s *Service) OpenAccount(ctx context.Context, userID string, initial int64, privileged bool) (*models.Account, error) {
	if userID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "user_id is required")
	}
	if initial < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "initial balance must not be negative")
	}

	now := requestcontext.Now(ctx)
	account := &models.Account{
		UserID:     userID,
		Balance:    initial,
		Privileged: privileged,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := s.store.RunInTx(ctx, userID, func(tx ports.TxStore) error {
		if err := tx.InsertAccount(ctx, account); err != nil {
			return err
		}
		if initial == 0 {
			return nil
		}
		return tx.AppendTransaction(ctx, s.transaction(ctx, userID, initial, models.TypeRecharge, "initial balance", nil, initial))
	})
	if err != nil {
		return nil, s.translate(err, "failed to open account")
	}

	s.emit(ctx, audit.EventAccountOpened, userID, "", initial, initial)
	return account, nil
}

// Debit charges cost for a lookup and returns the balance afterwards.
// Privileged accounts are never charged and no transaction is written.
func (s *Service) Debit(ctx context.Context, userID string, cost int64, reason string) (int64, error) {
	res, err := s.Charge(ctx, userID, cost, reason)
	if err != nil {
		return 0, err
	}
	return res.BalanceAfter, nil
}

// Charge is Debit reporting how many units were actually taken.
func (s *Service) Charge(ctx context.Context, userID string, cost int64, reason string) (models.DebitResult, error) {
	if userID == "" {
		return models.DebitResult{}, dErrors.New(dErrors.CodeBadRequest, "user_id is required")
	}
	if cost < 0 {
		return models.DebitResult{}, dErrors.New(dErrors.CodeValidation, "cost must not be negative")
	}

	var (
		after   int64
		outcome string
		delta   int64
	)
	err := s.store.RunInTx(ctx, userID, func(tx ports.TxStore) error {
		account, err := tx.GetAccountForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if account.Privileged {
			after, outcome = account.Balance, "privileged"
			return nil
		}
		if account.Balance < cost {
			return models.InsufficientBalance(cost, account.Balance)
		}

		after = max(account.Balance-cost, 0)
		delta = after - account.Balance
		if delta == 0 {
			outcome = "noop"
			return nil
		}
		outcome = "charged"
		account.Balance = after
		account.UpdatedAt = requestcontext.Now(ctx)
		if err := tx.UpdateAccount(ctx, account); err != nil {
			return err
		}
		return tx.AppendTransaction(ctx, s.transaction(ctx, userID, delta, models.TypeConsumption, reason, nil, after))
	})
	if err != nil {
		if errors.Is(err, models.ErrInsufficientBalance) {
			s.metrics.IncrementDebit("insufficient")
		}
		return models.DebitResult{}, s.translate(err, "failed to debit account")
	}

	s.metrics.IncrementDebit(outcome)
	if delta != 0 {
		s.metrics.AddUnits(string(models.TypeConsumption), delta)
		s.emit(ctx, audit.EventBalanceDebited, userID, "", delta, after)
	}
	return models.DebitResult{BalanceAfter: after, Charged: -delta}, nil
}

// Credit adds a positive amount as a recharge or reward.
func (s *Service) Credit(ctx context.Context, userID string, amount int64, txType models.TransactionType, reason, operatorID string) (int64, error) {
	if userID == "" {
		return 0, dErrors.New(dErrors.CodeBadRequest, "user_id is required")
	}
	if amount <= 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "credit amount must be positive")
	}
	if txType != models.TypeRecharge && txType != models.TypeReward {
		return 0, dErrors.Newf(dErrors.CodeValidation, "credit type must be %s or %s", models.TypeRecharge, models.TypeReward)
	}

	var after int64
	err := s.store.RunInTx(ctx, userID, func(tx ports.TxStore) error {
		account, err := tx.GetAccountForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if amount > math.MaxInt64-account.Balance {
			return dErrors.Newf(dErrors.CodeValidation, "credit of %d would overflow balance %d", amount, account.Balance)
		}
		after = account.Balance + amount
		account.Balance = after
		account.UpdatedAt = requestcontext.Now(ctx)
		if err := tx.UpdateAccount(ctx, account); err != nil {
			return err
		}
		return tx.AppendTransaction(ctx, s.transaction(ctx, userID, amount, txType, reason, optional(operatorID), after))
	})
	if err != nil {
		return 0, s.translate(err, "failed to credit account")
	}

	s.metrics.AddUnits(string(txType), amount)
	s.emit(ctx, audit.EventBalanceCredited, userID, operatorID, amount, after)
	return after, nil
}

// SetBalance moves an account to target. A positive change is recorded as
// a recharge and a negative one as a deduction; no change writes nothing.
func (s *Service) SetBalance(ctx context.Context, userID string, target int64, operatorID, reason string) (int64, error) {
	if userID == "" {
		return 0, dErrors.New(dErrors.CodeBadRequest, "user_id is required")
	}
	if target < 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "balance must not be negative")
	}

	var delta int64
	txType := models.TypeRecharge
	err := s.store.RunInTx(ctx, userID, func(tx ports.TxStore) error {
		account, err := tx.GetAccountForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		delta = target - account.Balance
		if delta == 0 {
			return nil
		}
		if delta < 0 {
			txType = models.TypeDeduction
		}
		if reason == "" {
			if delta > 0 {
				reason = fmt.Sprintf("admin recharge: +%d", delta)
			} else {
				reason = fmt.Sprintf("admin deduction: %d", delta)
			}
		}
		account.Balance = target
		account.UpdatedAt = requestcontext.Now(ctx)
		if err := tx.UpdateAccount(ctx, account); err != nil {
			return err
		}
		return tx.AppendTransaction(ctx, s.transaction(ctx, userID, delta, txType, reason, optional(operatorID), target))
	})
	if err != nil {
		return 0, s.translate(err, "failed to set balance")
	}

	if delta != 0 {
		s.metrics.AddUnits(string(txType), delta)
		s.emit(ctx, audit.EventBalanceAdjusted, userID, operatorID, delta, target)
	}
	return target, nil
}

// CanAfford reports whether the account could be debited cost right now,
// along with its current balance.
func (s *Service) CanAfford(ctx context.Context, userID string, cost int64) (bool, int64, error) {
	account, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		return false, 0, s.translate(err, "failed to read account")
	}
	return account.Privileged || account.Balance >= cost, account.Balance, nil
}

// Balance returns the current balance.
func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	account, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		return 0, s.translate(err, "failed to read account")
	}
	return account.Balance, nil
}

// History returns transactions newest first.
func (s *Service) History(ctx context.Context, filter models.HistoryFilter) (models.Page, error) {
	if filter.Type != "" && !filter.Type.IsValid() {
		return models.Page{}, dErrors.Newf(dErrors.CodeValidation, "unknown transaction type %q", filter.Type)
	}
	page, err := s.store.ListTransactions(ctx, filter)
	if err != nil {
		return models.Page{}, s.translate(err, "failed to list transactions")
	}
	return page, nil
}

// Stats aggregates the ledger. Today starts at UTC midnight of the request time.
func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	todayStart := requestcontext.Now(ctx).UTC().Truncate(24 * time.Hour)
	st, err := s.store.Stats(ctx, todayStart)
	if err != nil {
		return models.Stats{}, s.translate(err, "failed to aggregate ledger")
	}
	return st, nil
}

// Reconcile returns every account whose balance differs from the sum of
// its transactions. An empty result means the ledger is consistent.
func (s *Service) Reconcile(ctx context.Context) ([]models.Discrepancy, error) {
	balances, err := s.store.Balances(ctx)
	if err != nil {
		return nil, s.translate(err, "failed to reconcile ledger")
	}
	var out []models.Discrepancy
	for _, b := range balances {
		if b.Balance != b.Sum {
			out = append(out, b)
		}
	}
	if len(out) > 0 {
		s.logger.ErrorContext(ctx, "ledger reconciliation found discrepancies", "count", len(out))
	}
	return out, nil
}

func (s *Service) transaction(ctx context.Context, userID string, amount int64, txType models.TransactionType, reason string, operatorID *string, after int64) *models.Transaction {
	return &models.Transaction{
		ID:           s.newID(),
		UserID:       userID,
		Amount:       amount,
		Type:         txType,
		Reason:       reason,
		OperatorID:   operatorID,
		BalanceAfter: after,
		CreatedAt:    requestcontext.Now(ctx),
	}
}

// translate maps store failures to domain errors. Coded errors pass through.
func (s *Service) translate(err error, msg string) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "account not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "account already exists")
	default:
		s.metrics.IncrementPersistFailure()
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, userID, actorID string, amount, after int64) {
	if actorID == "" {
		actorID = requestcontext.OperatorID(ctx)
	}
	publisher.Log(ctx, s.logger, s.auditor, audit.Event{
		Action:       string(event),
		UserID:       userID,
		ActorID:      actorID,
		RequestID:    requestcontext.RequestID(ctx),
		Timestamp:    requestcontext.Now(ctx),
		Amount:       amount,
		BalanceAfter: after,
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
