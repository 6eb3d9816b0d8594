// Package memrepo keeps accounts and transactions in process memory.
//
// Writes made inside ExecTx are staged and become visible only when the
// callback returns nil. Rows read for update stay locked until ExecTx returns.
package memrepo

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/lockpkg"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
)

// Repo is an in-memory ledger storage.
type Repo struct {
	mu           sync.RWMutex
	accounts     map[uuid.UUID]domain.Account
	transactions map[uuid.UUID]domain.Transaction

	rows *lockpkg.Serializer
}

// New returns an empty Repo.
func New() *Repo {
	return &Repo{
		accounts:     make(map[uuid.UUID]domain.Account),
		transactions: make(map[uuid.UUID]domain.Transaction),
		rows:         lockpkg.New(),
	}
}

// Create creates the account and then returns it.
func (r *Repo) Create(_ context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	if arg.Balance.IsNegative() {
		return domain.Account{}, domain.ErrNegativeAmount
	}

	a := domain.Account{
		ID:        arg.ID,
		Name:      arg.Name,
		Balance:   arg.Balance,
		CreatedAt: arg.CreatedAt,
		UpdatedAt: arg.CreatedAt,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[a.ID]; ok {
		return domain.Account{}, errorspkg.ErrInternal
	}

	r.accounts[a.ID] = a

	return a, nil
}

// Get returns the account with the given id.
func (r *Repo) Get(_ context.Context, id uuid.UUID) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return a, nil
}

// GetTransaction returns the transaction with the given id.
func (r *Repo) GetTransaction(_ context.Context, id uuid.UUID) (domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.transactions[id]
	if !ok {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}

	return t, nil
}

// Statement returns the account balance and its transactions newest first.
func (r *Repo) Statement(_ context.Context, accountID uuid.UUID, includeDeleted bool) (domain.Statement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[accountID]
	if !ok {
		return domain.Statement{}, domain.ErrAccountNotFound
	}

	items := []domain.Transaction{}

	for _, t := range r.transactions {
		if t.AccountID != accountID || (t.Deleted && !includeDeleted) {
			continue
		}

		items = append(items, t)
	}

	slices.SortFunc(items, func(a, b domain.Transaction) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}

		return bytes.Compare(a.ID[:], b.ID[:])
	})

	return domain.Statement{
		AccountID:      a.ID,
		CurrentBalance: a.Balance,
		Transactions:   items,
	}, nil
}

// ExecTx runs fn against a staging area and applies the staged writes only
// when fn returns nil.
func (r *Repo) ExecTx(ctx context.Context, fn func(domain.LedgerTx) error) error {
	tx := &txRepo{
		repo:         r,
		accounts:     make(map[uuid.UUID]domain.Account),
		transactions: make(map[uuid.UUID]domain.Transaction),
		held:         make(map[string]func()),
	}
	defer tx.release()

	if err := fn(tx); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("memrepo: transaction rolled back")
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, a := range tx.accounts {
		r.accounts[id] = a
	}

	for id, t := range tx.transactions {
		r.transactions[id] = t
	}

	return nil
}

// txRepo implements domain.LedgerTx over staged copies of the rows.
type txRepo struct {
	repo *Repo

	accounts     map[uuid.UUID]domain.Account
	transactions map[uuid.UUID]domain.Transaction

	held map[string]func()
}

func (tx *txRepo) lockRow(ctx context.Context, key string) error {
	if _, ok := tx.held[key]; ok {
		return nil
	}

	unlock, err := tx.repo.rows.Lock(ctx, key)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("row", key).Msg("memrepo: row lock")
		return errorspkg.ErrInternal
	}

	tx.held[key] = unlock

	return nil
}

func (tx *txRepo) release() {
	for key, unlock := range tx.held {
		unlock()
		delete(tx.held, key)
	}
}

func (tx *txRepo) account(id uuid.UUID) (domain.Account, bool) {
	if a, ok := tx.accounts[id]; ok {
		return a, true
	}

	tx.repo.mu.RLock()
	defer tx.repo.mu.RUnlock()

	a, ok := tx.repo.accounts[id]

	return a, ok
}

func (tx *txRepo) transaction(id uuid.UUID) (domain.Transaction, bool) {
	if t, ok := tx.transactions[id]; ok {
		return t, true
	}

	tx.repo.mu.RLock()
	defer tx.repo.mu.RUnlock()

	t, ok := tx.repo.transactions[id]

	return t, ok
}

func (tx *txRepo) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	if err := tx.lockRow(ctx, "account:"+id.String()); err != nil {
		return domain.Account{}, err
	}

	a, ok := tx.account(id)
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return a, nil
}

func (tx *txRepo) UpdateBalance(_ context.Context, id uuid.UUID, balance moneypkg.Money, updatedAt time.Time) (domain.Account, error) {
	a, ok := tx.account(id)
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	if balance.IsNegative() {
		return domain.Account{}, domain.ErrInsufficientFunds
	}

	a.Balance = balance
	a.UpdatedAt = updatedAt
	tx.accounts[id] = a

	return a, nil
}

func (tx *txRepo) CreateTransaction(_ context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	if _, ok := tx.account(arg.AccountID); !ok {
		return domain.Transaction{}, domain.ErrAccountNotFound
	}

	if !arg.Type.Valid() {
		return domain.Transaction{}, domain.ErrInvalidTransactionType
	}

	if !arg.Amount.IsPositive() {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}

	if _, ok := tx.transaction(arg.ID); ok {
		return domain.Transaction{}, errorspkg.ErrInternal
	}

	t := domain.Transaction{
		ID:          arg.ID,
		AccountID:   arg.AccountID,
		Type:        arg.Type,
		Amount:      arg.Amount,
		Description: arg.Description,
		Timestamp:   arg.Timestamp,
	}
	tx.transactions[t.ID] = t

	return t, nil
}

func (tx *txRepo) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	if err := tx.lockRow(ctx, "transaction:"+id.String()); err != nil {
		return domain.Transaction{}, err
	}

	t, ok := tx.transaction(id)
	if !ok {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}

	return t, nil
}

func (tx *txRepo) UpdateTransaction(_ context.Context, arg domain.UpdateTransactionParams) (domain.Transaction, error) {
	t, ok := tx.transaction(arg.ID)
	if !ok {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}

	if !arg.Type.Valid() {
		return domain.Transaction{}, domain.ErrInvalidTransactionType
	}

	if !arg.Amount.IsPositive() {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}

	t.Type = arg.Type
	t.Amount = arg.Amount
	t.Timestamp = arg.Timestamp
	t.Deleted = arg.Deleted
	tx.transactions[t.ID] = t

	return t, nil
}
