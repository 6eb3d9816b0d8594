package domain

import (
	"errors"

	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

// Kind groups domain errors so callers can react without comparing messages.
type Kind int

// Error kinds.
const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindAccountNotFound
	KindTransactionNotFound
	KindInsufficientFunds
	KindInvalidState
	KindAmountOverflow
	KindBusy
	KindStorage
)

// KindOf returns the kind of err. Unrecognized errors are KindUnknown.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrNegativeAmount),
		errors.Is(err, ErrInvalidName),
		errors.Is(err, ErrInvalidTransactionType):
		return KindInvalidInput
	case errors.Is(err, ErrAccountNotFound):
		return KindAccountNotFound
	case errors.Is(err, ErrTransactionNotFound):
		return KindTransactionNotFound
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrTransactionDeleted),
		errors.Is(err, ErrTransactionNotDeleted):
		return KindInvalidState
	case errors.Is(err, ErrAmountOverflow):
		return KindAmountOverflow
	case errors.Is(err, ErrAccountBusy):
		return KindBusy
	case errors.Is(err, errorspkg.ErrInternal):
		return KindStorage
	}

	return KindUnknown
}

// IsBusiness reports whether err is an expected business outcome rather than a
// system failure.
func IsBusiness(err error) bool {
	switch KindOf(err) {
	case KindUnknown, KindStorage, KindBusy:
		return false
	}

	return true
}
