// Package domain provides defenitions of all entities.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/go-petr/pet-ledger/pkg/moneypkg"
)

// MinNameLength is the minimal number of characters in an account name.
const MinNameLength = 2

var (
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidName indicates that the account name is empty or too short.
	ErrInvalidName = errors.New("name must be at least 2 characters long")
	// ErrAccountBusy indicates that the account lock was not acquired in time.
	ErrAccountBusy = errors.New("account is busy")
)

// Account holds user balance in minor currency units.
type Account struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Balance   moneypkg.Money `json:"balance_minor_units"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CreateAccountParams is the input data to create an account.
type CreateAccountParams struct {
	ID        uuid.UUID
	Name      string
	Balance   moneypkg.Money
	CreatedAt time.Time
}
