// Package accountservice manages business logic layer of accounts.
package accountservice

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
)

// Repo provides data access layer interface needed by account service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package accountservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Account, error)
}

// Service facilitates account service layer logic.
type Service struct {
	repo Repo
}

// New returns account service struct to manage account bussines logic.
func New(ar Repo) *Service {
	return &Service{repo: ar}
}

// Create registers a new account with the given name and opening balance.
func (s *Service) Create(ctx context.Context, name string, initialBalance moneypkg.Money) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < domain.MinNameLength {
		l.Info().Str("name", name).Msg("account rejected: name too short")
		return domain.Account{}, domain.ErrInvalidName
	}

	if initialBalance.IsNegative() {
		l.Info().Int64("initial_balance", int64(initialBalance)).Msg("account rejected: negative balance")
		return domain.Account{}, domain.ErrNegativeAmount
	}

	arg := domain.CreateAccountParams{
		ID:        uuid.New(),
		Name:      name,
		Balance:   initialBalance,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	account, err := s.repo.Create(ctx, arg)
	if err != nil {
		return account, err
	}

	l.Info().Str("account_id", account.ID.String()).Msg("account created")

	return account, nil
}

// Get returns account for the given account ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return account, err
	}

	return account, nil
}
