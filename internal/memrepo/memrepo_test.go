package memrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

func seedAccount(t *testing.T, r *Repo, balance moneypkg.Money) domain.Account {
	t.Helper()

	arg := domain.CreateAccountParams{
		ID:        uuid.New(),
		Name:      randompkg.Name(),
		Balance:   balance,
		CreatedAt: time.Now().UTC(),
	}

	a, err := r.Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("r.Create(ctx, %+v) returned error: %v", arg, err)
	}

	return a
}

func seedTransaction(t *testing.T, r *Repo, accountID uuid.UUID, at time.Time, deleted bool) domain.Transaction {
	t.Helper()

	var tr domain.Transaction

	err := r.ExecTx(context.Background(), func(tx domain.LedgerTx) error {
		var err error

		tr, err = tx.CreateTransaction(context.Background(), domain.CreateTransactionParams{
			ID:        uuid.New(),
			AccountID: accountID,
			Type:      domain.TransactionTypeDeposit,
			Amount:    randompkg.MoneyBetween(1, 100),
			Timestamp: at,
		})
		if err != nil || !deleted {
			return err
		}

		tr, err = tx.UpdateTransaction(context.Background(), domain.UpdateTransactionParams{
			ID:        tr.ID,
			Type:      tr.Type,
			Amount:    tr.Amount,
			Timestamp: tr.Timestamp,
			Deleted:   true,
		})

		return err
	})
	if err != nil {
		t.Fatalf("seed transaction returned error: %v", err)
	}

	return tr
}

func TestCreate(t *testing.T) {
	r := New()

	a := seedAccount(t, r, 1000)

	got, err := r.Get(context.Background(), a.ID)
	require.NoError(t, err)

	if diff := cmp.Diff(a, got); diff != "" {
		t.Errorf("r.Get(ctx, %v) returned unexpected difference (-want +got):\n%s", a.ID, diff)
	}

	require.Equal(t, a.CreatedAt, got.UpdatedAt)

	_, err = r.Create(context.Background(), domain.CreateAccountParams{ID: uuid.New(), Name: "ab", Balance: -1})
	require.ErrorIs(t, err, domain.ErrNegativeAmount)

	_, err = r.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestExecTxCommit(t *testing.T) {
	r := New()
	a := seedAccount(t, r, 1000)
	now := time.Now().UTC()

	var created domain.Transaction

	err := r.ExecTx(context.Background(), func(tx domain.LedgerTx) error {
		acc, err := tx.GetAccountForUpdate(context.Background(), a.ID)
		if err != nil {
			return err
		}

		created, err = tx.CreateTransaction(context.Background(), domain.CreateTransactionParams{
			ID:          uuid.New(),
			AccountID:   a.ID,
			Type:        domain.TransactionTypeWithdrawal,
			Amount:      250,
			Description: "groceries",
			Timestamp:   now,
		})
		if err != nil {
			return err
		}

		_, err = tx.UpdateBalance(context.Background(), acc.ID, acc.Balance-250, now)

		return err
	})
	require.NoError(t, err)

	got, err := r.Get(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, moneypkg.Money(750), got.Balance)
	require.Equal(t, now, got.UpdatedAt)

	gotTr, err := r.GetTransaction(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created, gotTr)
	require.Equal(t, "groceries", gotTr.Description)
}

func TestExecTxRollback(t *testing.T) {
	r := New()
	a := seedAccount(t, r, 1000)
	errBoom := errors.New("boom")

	var created domain.Transaction

	err := r.ExecTx(context.Background(), func(tx domain.LedgerTx) error {
		var err error

		created, err = tx.CreateTransaction(context.Background(), domain.CreateTransactionParams{
			ID:        uuid.New(),
			AccountID: a.ID,
			Type:      domain.TransactionTypeDeposit,
			Amount:    500,
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			return err
		}

		if _, err := tx.UpdateBalance(context.Background(), a.ID, 1500, time.Now().UTC()); err != nil {
			return err
		}

		// Staged writes are visible inside the transaction.
		acc, err := tx.GetAccountForUpdate(context.Background(), a.ID)
		if err != nil {
			return err
		}
		if acc.Balance != 1500 {
			t.Errorf("staged balance = %v, want 1500", acc.Balance)
		}

		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	got, err := r.Get(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, a, got)

	_, err = r.GetTransaction(context.Background(), created.ID)
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)

	require.Zero(t, r.rows.Len(), "row locks must be released")
}

func TestExecTxConstraints(t *testing.T) {
	r := New()
	a := seedAccount(t, r, 100)

	testCases := []struct {
		name    string
		step    func(tx domain.LedgerTx) error
		wantErr error
	}{
		{
			name: "NegativeBalance",
			step: func(tx domain.LedgerTx) error {
				_, err := tx.UpdateBalance(context.Background(), a.ID, -1, time.Now())
				return err
			},
			wantErr: domain.ErrInsufficientFunds,
		},
		{
			name: "UnknownAccount",
			step: func(tx domain.LedgerTx) error {
				_, err := tx.GetAccountForUpdate(context.Background(), uuid.New())
				return err
			},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name: "TransactionForUnknownAccount",
			step: func(tx domain.LedgerTx) error {
				_, err := tx.CreateTransaction(context.Background(), domain.CreateTransactionParams{
					ID: uuid.New(), AccountID: uuid.New(), Type: domain.TransactionTypeDeposit, Amount: 1,
				})
				return err
			},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name: "ZeroAmount",
			step: func(tx domain.LedgerTx) error {
				_, err := tx.CreateTransaction(context.Background(), domain.CreateTransactionParams{
					ID: uuid.New(), AccountID: a.ID, Type: domain.TransactionTypeDeposit,
				})
				return err
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "InvalidType",
			step: func(tx domain.LedgerTx) error {
				_, err := tx.CreateTransaction(context.Background(), domain.CreateTransactionParams{
					ID: uuid.New(), AccountID: a.ID, Type: "transfer", Amount: 1,
				})
				return err
			},
			wantErr: domain.ErrInvalidTransactionType,
		},
		{
			name: "UnknownTransaction",
			step: func(tx domain.LedgerTx) error {
				_, err := tx.GetTransactionForUpdate(context.Background(), uuid.New())
				return err
			},
			wantErr: domain.ErrTransactionNotFound,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			err := r.ExecTx(context.Background(), tc.step)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}

	got, err := r.Get(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, moneypkg.Money(100), got.Balance)
}

func TestExecTxRowLock(t *testing.T) {
	r := New()
	a := seedAccount(t, r, 100)

	locked := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = r.ExecTx(context.Background(), func(tx domain.LedgerTx) error {
			if _, err := tx.GetAccountForUpdate(context.Background(), a.ID); err != nil {
				return err
			}
			close(locked)
			<-done

			return nil
		})
	}()

	<-locked

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := r.ExecTx(ctx, func(tx domain.LedgerTx) error {
		_, err := tx.GetAccountForUpdate(ctx, a.ID)
		return err
	})
	require.Error(t, err)

	close(done)

	require.Eventually(t, func() bool { return r.rows.Len() == 0 }, time.Second, time.Millisecond)

	err = r.ExecTx(context.Background(), func(tx domain.LedgerTx) error {
		// Locking the same row twice in one transaction must not deadlock.
		if _, err := tx.GetAccountForUpdate(context.Background(), a.ID); err != nil {
			return err
		}
		_, err := tx.GetAccountForUpdate(context.Background(), a.ID)
		return err
	})
	require.NoError(t, err)
}

func TestStatement(t *testing.T) {
	r := New()
	a := seedAccount(t, r, 0)
	other := seedAccount(t, r, 0)

	base := time.Now().UTC()

	oldest := seedTransaction(t, r, a.ID, base.Add(-2*time.Hour), false)
	deleted := seedTransaction(t, r, a.ID, base.Add(-time.Hour), true)
	newest := seedTransaction(t, r, a.ID, base, false)
	seedTransaction(t, r, other.ID, base, false)

	testCases := []struct {
		name           string
		includeDeleted bool
		want           []domain.Transaction
	}{
		{
			name: "ActiveOnly",
			want: []domain.Transaction{newest, oldest},
		},
		{
			name:           "IncludeDeleted",
			includeDeleted: true,
			want:           []domain.Transaction{newest, deleted, oldest},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := r.Statement(context.Background(), a.ID, tc.includeDeleted)
			require.NoError(t, err)
			require.Equal(t, a.ID, got.AccountID)

			if diff := cmp.Diff(tc.want, got.Transactions); diff != "" {
				t.Errorf("r.Statement(ctx, %v, %v) returned unexpected difference (-want +got):\n%s",
					a.ID, tc.includeDeleted, diff)
			}
		})
	}

	_, err := r.Statement(context.Background(), uuid.New(), false)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	empty, err := r.Statement(context.Background(), seedAccount(t, r, 5).ID, true)
	require.NoError(t, err)
	require.NotNil(t, empty.Transactions)
	require.Empty(t, empty.Transactions)
	require.Equal(t, moneypkg.Money(5), empty.CurrentBalance)
}
