// Package accountrepo manages repository layer of accounts.
package accountrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
)

const balanceConstraint = "accounts_balance_minor_units_check"

// RepoPGS facilitates account repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const createQuery = `
INSERT INTO
    accounts (id, name, balance_minor_units, created_at, updated_at)
VALUES
    ($1, $2, $3, $4, $4)
RETURNING id, name, balance_minor_units, created_at, updated_at
`

// Create creates the account and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery, arg.ID, arg.Name, arg.Balance, arg.CreatedAt)

	a, err := scanAccount(row)
	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx, %+v)", arg)

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == balanceConstraint {
			return a, domain.ErrNegativeAmount
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const getQuery = `
SELECT
	id, name, balance_minor_units, created_at, updated_at
FROM accounts
WHERE id = $1
`

// Get returns the account with the given id.
func (r *RepoPGS) Get(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return r.get(ctx, getQuery, id)
}

const getForUpdateQuery = getQuery + `FOR UPDATE
`

// GetForUpdate returns the account with the given id and locks its row
// until the surrounding transaction ends.
func (r *RepoPGS) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return r.get(ctx, getForUpdateQuery, id)
}

func (r *RepoPGS) get(ctx context.Context, query string, id uuid.UUID) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, query, id)

	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Send()

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const updateBalanceQuery = `
UPDATE accounts
SET balance_minor_units = $1, updated_at = $2
WHERE id = $3
RETURNING id, name, balance_minor_units, created_at, updated_at
`

// UpdateBalance sets the account's balance and returns the changed account.
func (r *RepoPGS) UpdateBalance(ctx context.Context, id uuid.UUID, balance moneypkg.Money, updatedAt time.Time) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, updateBalanceQuery, balance, updatedAt, id)

	a, err := scanAccount(row)
	if err != nil {
		l.Error().Err(err).Send()

		if errors.Is(err, sql.ErrNoRows) {
			return a, domain.ErrAccountNotFound
		}

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == balanceConstraint {
			return a, domain.ErrInsufficientFunds
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

func scanAccount(row *sql.Row) (domain.Account, error) {
	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Balance,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, err
	}

	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()

	return a, nil
}
