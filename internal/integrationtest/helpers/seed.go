// Package helpers provides database seeding used in integration tests.
package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/go-petr/pet-ledger/internal/accountrepo"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/transactionrepo"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

// Now returns the current time with the precision kept by the database.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// SeedAccount creates Account with the given balance inside a test transaction.
func SeedAccount(t *testing.T, tx dbpkg.SQLInterface, balance moneypkg.Money) domain.Account {
	t.Helper()

	arg := domain.CreateAccountParams{
		ID:        uuid.New(),
		Name:      randompkg.Name(),
		Balance:   balance,
		CreatedAt: Now(),
	}

	account, err := accountrepo.NewRepoPGS(tx).Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("accountRepo.Create(context.Background(), %+v) returned error: %v", arg, err)
	}

	return account
}

// SeedAccountWith1000Balance creates Account with 1000 minor units on balance.
func SeedAccountWith1000Balance(t *testing.T, tx dbpkg.SQLInterface) domain.Account {
	t.Helper()

	return SeedAccount(t, tx, 1000)
}

// SeedTransaction creates a transaction row without touching the account balance.
func SeedTransaction(t *testing.T, tx dbpkg.SQLInterface, accountID uuid.UUID, typ domain.TransactionType, amount moneypkg.Money, at time.Time) domain.Transaction {
	t.Helper()

	arg := domain.CreateTransactionParams{
		ID:          uuid.New(),
		AccountID:   accountID,
		Type:        typ,
		Amount:      amount,
		Description: randompkg.Description(),
		Timestamp:   at,
	}

	tr, err := transactionrepo.NewRepoPGS(tx).Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("transactionRepo.Create(context.Background(), %+v) returned error: %v", arg, err)
	}

	return tr
}

// SeedTransactions creates count deposits one second apart, oldest first.
func SeedTransactions(t *testing.T, tx dbpkg.SQLInterface, count int, accountID uuid.UUID) []domain.Transaction {
	t.Helper()

	items := make([]domain.Transaction, count)
	start := Now().Add(-time.Duration(count) * time.Second)

	for i := range items {
		items[i] = SeedTransaction(t, tx, accountID, domain.TransactionTypeDeposit,
			randompkg.MoneyBetween(1, 1000), start.Add(time.Duration(i)*time.Second))
	}

	return items
}
