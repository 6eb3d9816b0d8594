package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/go-petr/pet-ledger/pkg/moneypkg"
)

// EventKind names a committed ledger mutation.
type EventKind string

// Ledger event kinds.
const (
	EventDeposited EventKind = "transaction.deposited"
	EventWithdrawn EventKind = "transaction.withdrawn"
	EventUpdated   EventKind = "transaction.updated"
	EventDeleted   EventKind = "transaction.deleted"
	EventRestored  EventKind = "transaction.restored"
)

// LedgerEvent describes a committed change of an account balance.
type LedgerEvent struct {
	Kind          EventKind       `json:"kind"`
	AccountID     uuid.UUID       `json:"account_id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	Type          TransactionType `json:"type"`
	Amount        moneypkg.Money  `json:"amount_minor_units"`
	Balance       moneypkg.Money  `json:"balance_minor_units"`
	Deleted       bool            `json:"deleted"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewLedgerEvent builds the event for a committed ledger result.
func NewLedgerEvent(kind EventKind, res LedgerResult, at time.Time) LedgerEvent {
	return LedgerEvent{
		Kind:          kind,
		AccountID:     res.Transaction.AccountID,
		TransactionID: res.Transaction.ID,
		Type:          res.Transaction.Type,
		Amount:        res.Transaction.Amount,
		Balance:       res.Balance,
		Deleted:       res.Transaction.Deleted,
		OccurredAt:    at,
	}
}
