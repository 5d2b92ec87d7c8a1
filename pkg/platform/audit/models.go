// Package audit carries audit events from the lookup pipeline and the usage
// ledger to a store. Failing to record an event never fails the operation
// that produced it.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing.
type EventCategory string

const (
	// CategoryBilling covers balance movements. These are kept as long as
	// the ledger itself.
	CategoryBilling EventCategory = "billing"

	// CategoryOperations covers lookup activity. These can be sampled or
	// aggregated with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	UserID    string        `json:"user_id,omitempty"`
	Action    string        `json:"action"`
	Reason    string        `json:"reason,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	// ActorID tracks who performed the action when different from UserID,
	// e.g. an operator adjusting someone else's balance.
	ActorID string `json:"actor_id,omitempty"`
	// SubjectIDHash is a SHA-256 hash of the looked-up identifier. The raw
	// phone number or email is never written to the audit trail.
	SubjectIDHash string `json:"subject_id_hash,omitempty"`
	Amount        int64  `json:"amount,omitempty"`
	BalanceAfter  int64  `json:"balance_after,omitempty"`
	Cached        bool   `json:"cached,omitempty"`
}

type AuditEvent string

const (
	// Lookup events
	EventLookupCompleted AuditEvent = "lookup_completed"
	EventLookupRejected  AuditEvent = "lookup_rejected"

	// Ledger events
	EventAccountOpened   AuditEvent = "ledger_account_opened"
	EventBalanceDebited  AuditEvent = "ledger_debit"
	EventBalanceCredited AuditEvent = "ledger_credit"
	EventBalanceAdjusted AuditEvent = "ledger_adjusted"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventLookupCompleted: CategoryOperations,
	EventLookupRejected:  CategoryOperations,

	EventAccountOpened:   CategoryBilling,
	EventBalanceDebited:  CategoryBilling,
	EventBalanceCredited: CategoryBilling,
	EventBalanceAdjusted: CategoryBilling,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// HashSubject returns the hex SHA-256 of a looked-up identifier.
func HashSubject(identifier string) string {
	if identifier == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(identifier))
	return hex.EncodeToString(sum[:])
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Emitter is what domain services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
