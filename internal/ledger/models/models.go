package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "lookout/pkg/domain-errors"
)

// TransactionType classifies a balance movement.
type TransactionType string

const (
	// TypeConsumption is a charge for a lookup. Amount is negative.
	TypeConsumption TransactionType = "consumption"
	// TypeRecharge is a top-up, including positive admin adjustments.
	TypeRecharge TransactionType = "recharge"
	// TypeReward is a bonus credit.
	TypeReward TransactionType = "reward"
	// TypeDeduction is a negative admin adjustment.
	TypeDeduction TransactionType = "deduction"
)

// IsValid reports whether t is a known transaction type.
func (t TransactionType) IsValid() bool {
	switch t {
	case TypeConsumption, TypeRecharge, TypeReward, TypeDeduction:
		return true
	}
	return false
}

// ErrInsufficientBalance matches any insufficient-balance error with errors.Is.
var ErrInsufficientBalance = dErrors.New(dErrors.CodeInsufficientBalance, "insufficient balance")

// InsufficientBalance builds the error returned when a debit cannot be covered.
func InsufficientBalance(required, available int64) error {
	return dErrors.Newf(dErrors.CodeInsufficientBalance, "insufficient balance: required %d, available %d", required, available)
}

// Account is a metered user's balance.
type Account struct {
	UserID string `json:"user_id"`
	// Balance never goes below zero.
	Balance    int64     `json:"balance"`
	Privileged bool      `json:"privileged"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Transaction is one immutable balance movement.
type Transaction struct {
	ID           uuid.UUID       `json:"id"`
	UserID       string          `json:"user_id"`
	Amount       int64           `json:"amount"`
	Type         TransactionType `json:"type"`
	Reason       string          `json:"reason,omitempty"`
	OperatorID   *string         `json:"operator_id,omitempty"`
	BalanceAfter int64           `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}

// DebitResult is the outcome of one charge. Charged is zero for privileged
// accounts and zero-cost lookups.
type DebitResult struct {
	BalanceAfter int64 `json:"balance_after"`
	Charged      int64 `json:"charged"`
}

// HistoryFilter selects transactions for History.
type HistoryFilter struct {
	UserID string
	Type   TransactionType
	Limit  int
	Offset int
}

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 200
)

// Normalize clamps Limit and Offset into range.
func (f HistoryFilter) Normalize() HistoryFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultHistoryLimit
	}
	if f.Limit > MaxHistoryLimit {
		f.Limit = MaxHistoryLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Page is one page of transactions, newest first.
type Page struct {
	Transactions []Transaction `json:"transactions"`
	Total        int           `json:"total"`
	Limit        int           `json:"limit"`
	Offset       int           `json:"offset"`
}

// Stats aggregates the ledger. Consumption figures are reported as positive
// numbers.
type Stats struct {
	TotalRecharge       int64   `json:"total_recharge"`
	TotalConsumption    int64   `json:"total_consumption"`
	TodayConsumption    int64   `json:"today_consumption"`
	TotalRewards        int64   `json:"total_rewards"`
	TotalBalance        int64   `json:"total_balance"`
	AverageBalance      float64 `json:"average_balance"`
	AccountsWithBalance int     `json:"accounts_with_balance"`
}

// Discrepancy is an account whose balance differs from the sum of its
// transactions.
type Discrepancy struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
	Sum     int64  `json:"sum"`
}
