// Package ledgerrepo runs ledger steps inside PostgreSQL transactions.
package ledgerrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/accountrepo"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/transactionrepo"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
)

// RepoPGS facilitates ledger repository layer logic.
type RepoPGS struct {
	conn *sql.DB
}

// NewRepoPGS returns ledger RepoPGS with connection to start transactions.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{conn: db}
}

// txRepo binds account and transaction repositories to a single *sql.Tx.
type txRepo struct {
	accounts     *accountrepo.RepoPGS
	transactions *transactionrepo.RepoPGS
}

func newTxRepo(tx *sql.Tx) *txRepo {
	return &txRepo{
		accounts:     accountrepo.NewRepoPGS(tx),
		transactions: transactionrepo.NewRepoPGS(tx),
	}
}

func (r *txRepo) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return r.accounts.GetForUpdate(ctx, id)
}

func (r *txRepo) UpdateBalance(ctx context.Context, id uuid.UUID, balance moneypkg.Money, updatedAt time.Time) (domain.Account, error) {
	return r.accounts.UpdateBalance(ctx, id, balance, updatedAt)
}

func (r *txRepo) CreateTransaction(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	return r.transactions.Create(ctx, arg)
}

func (r *txRepo) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	return r.transactions.GetForUpdate(ctx, id)
}

func (r *txRepo) UpdateTransaction(ctx context.Context, arg domain.UpdateTransactionParams) (domain.Transaction, error) {
	return r.transactions.Update(ctx, arg)
}

// ExecTx runs fn within a single database transaction.
//
// The transaction is committed only when fn returns nil, otherwise every
// write made through the domain.LedgerTx is rolled back.
func (r *RepoPGS) ExecTx(ctx context.Context, fn func(domain.LedgerTx) error) error {
	l := zerolog.Ctx(ctx)

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			l.Error().Err(err).Send()
		}
	}()

	if err := fn(newTxRepo(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	return nil
}

// GetTransaction returns the transaction with the given id without locking it.
func (r *RepoPGS) GetTransaction(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	return transactionrepo.NewRepoPGS(r.conn).Get(ctx, id)
}

// Statement returns the account balance and its transactions read from one snapshot.
func (r *RepoPGS) Statement(ctx context.Context, accountID uuid.UUID, includeDeleted bool) (domain.Statement, error) {
	l := zerolog.Ctx(ctx)

	var s domain.Statement

	tx, err := r.conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		l.Error().Err(err).Send()
		return s, errorspkg.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			l.Error().Err(err).Send()
		}
	}()

	account, err := accountrepo.NewRepoPGS(tx).Get(ctx, accountID)
	if err != nil {
		return s, err
	}

	transactions, err := transactionrepo.NewRepoPGS(tx).ListByAccount(ctx, accountID, includeDeleted)
	if err != nil {
		return s, err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return s, errorspkg.ErrInternal
	}

	s.AccountID = account.ID
	s.CurrentBalance = account.Balance
	s.Transactions = transactions

	return s, nil
}
