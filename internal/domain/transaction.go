package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/go-petr/pet-ledger/pkg/moneypkg"
)

var (
	// ErrTransactionNotFound indicates that the transaction is not found.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrInsufficientFunds indicates that the operation would make the balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrTransactionDeleted indicates that the transaction is soft-deleted.
	ErrTransactionDeleted = errors.New("transaction is deleted")
	// ErrTransactionNotDeleted indicates that the transaction is not soft-deleted.
	ErrTransactionNotDeleted = errors.New("transaction is not deleted")
	// ErrInvalidTransactionType indicates unknown transaction type.
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	// ErrNegativeAmount indicates negative amount.
	ErrNegativeAmount = errors.New("negative amount")
	// ErrInvalidAmount indicates an amount that is not a positive number of minor units.
	ErrInvalidAmount = moneypkg.ErrInvalidAmount
	// ErrAmountOverflow indicates that the amount or resulting balance is out of range.
	ErrAmountOverflow = moneypkg.ErrAmountOverflow
)

// TransactionType is the direction of a transaction.
type TransactionType string

// Supported transaction types.
const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
)

// Valid reports whether t is a supported transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeDeposit || t == TransactionTypeWithdrawal
}

// Transaction holds a single balance change of an account.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"account_id"`
	Type        TransactionType `json:"type"`
	Amount      moneypkg.Money  `json:"amount_minor_units"` // always positive
	Description string          `json:"description,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	Deleted     bool            `json:"deleted"`
}

// SignedAmount returns amount with the sign implied by t.
func SignedAmount(t TransactionType, amount moneypkg.Money) moneypkg.Money {
	if t == TransactionTypeWithdrawal {
		return amount.Neg()
	}

	return amount
}

// Contribution returns the effect of the transaction on the account balance.
// Deleted transactions contribute nothing.
func (t Transaction) Contribution() moneypkg.Money {
	if t.Deleted {
		return 0
	}

	return SignedAmount(t.Type, t.Amount)
}

// CreateTransactionParams is the input data to create a transaction.
type CreateTransactionParams struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	Type        TransactionType
	Amount      moneypkg.Money
	Description string
	Timestamp   time.Time
}

// UpdateTransactionParams holds the mutable fields of a transaction.
type UpdateTransactionParams struct {
	ID        uuid.UUID
	Type      TransactionType
	Amount    moneypkg.Money
	Timestamp time.Time
	Deleted   bool
}

// LedgerResult is the result of a balance changing operation.
type LedgerResult struct {
	Transaction Transaction    `json:"transaction"`
	Balance     moneypkg.Money `json:"balance_minor_units"`
}

// Statement holds the account balance and its transaction history.
type Statement struct {
	AccountID      uuid.UUID      `json:"account_id"`
	CurrentBalance moneypkg.Money `json:"current_balance_minor_units"`
	Transactions   []Transaction  `json:"transactions"`
}

// LedgerTx is the set of storage operations a ledger step performs inside a
// single storage transaction.
//
// The ForUpdate reads lock the row until the storage transaction ends when the
// storage engine supports row locks.
type LedgerTx interface {
	GetAccountForUpdate(ctx context.Context, id uuid.UUID) (Account, error)
	UpdateBalance(ctx context.Context, id uuid.UUID, balance moneypkg.Money, updatedAt time.Time) (Account, error)
	CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error)
	GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (Transaction, error)
	UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (Transaction, error)
}
