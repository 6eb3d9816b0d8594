// Package transactionrepo manages repository layer of ledger transactions.
package transactionrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

// RepoPGS facilitates transaction repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns transaction RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{db: db}
}

const columns = `id, account_id, type, amount_minor_units, description, timestamp, deleted`

const createQuery = `
INSERT INTO
    transactions (id, account_id, type, amount_minor_units, description, timestamp)
VALUES
    ($1, $2, $3, $4, $5, $6)
RETURNING ` + columns

// Create creates the transaction and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		arg.ID,
		arg.AccountID,
		arg.Type,
		arg.Amount,
		arg.Description,
		arg.Timestamp,
	)

	t, err := scanTransaction(row)
	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx, %+v)", arg)

		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Constraint {
			case "transactions_account_id_fkey":
				return t, domain.ErrAccountNotFound
			case "transactions_amount_minor_units_check":
				return t, domain.ErrInvalidAmount
			case "transactions_type_check":
				return t, domain.ErrInvalidTransactionType
			}
		}

		return t, errorspkg.ErrInternal
	}

	return t, nil
}

const getQuery = `
SELECT ` + columns + `
FROM transactions
WHERE id = $1
`

// Get returns the transaction with the given id.
func (r *RepoPGS) Get(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	return r.get(ctx, getQuery, id)
}

const getForUpdateQuery = getQuery + `FOR UPDATE
`

// GetForUpdate returns the transaction with the given id and locks its row
// until the surrounding transaction ends.
func (r *RepoPGS) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	return r.get(ctx, getForUpdateQuery, id)
}

func (r *RepoPGS) get(ctx context.Context, query string, id uuid.UUID) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, query, id)

	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, domain.ErrTransactionNotFound
		}

		l.Error().Err(err).Send()

		return t, errorspkg.ErrInternal
	}

	return t, nil
}

const updateQuery = `
UPDATE transactions
SET type = $1, amount_minor_units = $2, timestamp = $3, deleted = $4
WHERE id = $5
RETURNING ` + columns

// Update overwrites the mutable fields of the transaction and returns it.
func (r *RepoPGS) Update(ctx context.Context, arg domain.UpdateTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, updateQuery, arg.Type, arg.Amount, arg.Timestamp, arg.Deleted, arg.ID)

	t, err := scanTransaction(row)
	if err != nil {
		l.Error().Err(err).Msgf("Update(ctx, %+v)", arg)

		if errors.Is(err, sql.ErrNoRows) {
			return t, domain.ErrTransactionNotFound
		}

		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Constraint {
			case "transactions_amount_minor_units_check":
				return t, domain.ErrInvalidAmount
			case "transactions_type_check":
				return t, domain.ErrInvalidTransactionType
			}
		}

		return t, errorspkg.ErrInternal
	}

	return t, nil
}

const listByAccountQuery = `
SELECT ` + columns + `
FROM transactions
WHERE account_id = $1 AND (NOT deleted OR $2)
ORDER BY timestamp DESC, id
`

// ListByAccount returns the account transactions newest first.
// Soft-deleted transactions are returned only when includeDeleted is set.
func (r *RepoPGS) ListByAccount(ctx context.Context, accountID uuid.UUID, includeDeleted bool) ([]domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listByAccountQuery, accountID, includeDeleted)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Transaction{}

	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(
			&t.ID,
			&t.AccountID,
			&t.Type,
			&t.Amount,
			&t.Description,
			&t.Timestamp,
			&t.Deleted,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		t.Timestamp = t.Timestamp.UTC()
		items = append(items, t)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

func scanTransaction(row *sql.Row) (domain.Transaction, error) {
	var t domain.Transaction

	err := row.Scan(
		&t.ID,
		&t.AccountID,
		&t.Type,
		&t.Amount,
		&t.Description,
		&t.Timestamp,
		&t.Deleted,
	)
	if err != nil {
		return domain.Transaction{}, err
	}

	t.Timestamp = t.Timestamp.UTC()

	return t, nil
}
