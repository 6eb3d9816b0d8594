// Package ledgerservice manages business logic layer of the balance ledger.
//
// Every mutation of an account runs while holding that account's key in a
// per-account serializer and inside a single storage transaction, so the
// balance and the transaction rows always change together.
package ledgerservice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/lockpkg"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
)

const instrumentationName = "github.com/go-petr/pet-ledger/internal/ledgerservice"

// Repo provides data access layer interface needed by ledger service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package ledgerservice
type Repo interface {
	// ExecTx commits the writes made through the domain.LedgerTx only when
	// fn returns nil.
	ExecTx(ctx context.Context, fn func(domain.LedgerTx) error) error
	GetTransaction(ctx context.Context, id uuid.UUID) (domain.Transaction, error)
	Statement(ctx context.Context, accountID uuid.UUID, includeDeleted bool) (domain.Statement, error)
}

// Publisher delivers committed ledger events to the outside world.
type Publisher interface {
	Publish(ctx context.Context, e domain.LedgerEvent) error
}

// Option configures Service.
type Option func(*Service)

// WithPublisher sets the publisher of committed ledger events.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithLockTimeout bounds the time an operation waits for its account.
// Zero means wait until the request context ends.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.lockTimeout = d
	}
}

// WithClock sets the source of transaction timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithSerializer shares the per-account serializer between services.
func WithSerializer(l *lockpkg.Serializer) Option {
	return func(s *Service) {
		s.locks = l
	}
}

// WithTracerProvider sets the provider of operation spans.
// The global provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracerProvider = tp
	}
}

// WithMeterProvider sets the provider of the operations counter.
// The global provider is used by default.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) {
		s.meterProvider = mp
	}
}

// Service facilitates ledger service layer logic.
type Service struct {
	repo        Repo
	locks       *lockpkg.Serializer
	publisher   Publisher
	lockTimeout time.Duration
	now         func() time.Time

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	operations     metric.Int64Counter
}

// New returns ledger service struct to manage ledger bussines logic.
func New(repo Repo, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		locks: lockpkg.New(),
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.tracerProvider == nil {
		s.tracerProvider = otel.GetTracerProvider()
	}

	if s.meterProvider == nil {
		s.meterProvider = otel.GetMeterProvider()
	}

	s.tracer = s.tracerProvider.Tracer(instrumentationName)

	counter, err := s.meterProvider.Meter(instrumentationName).Int64Counter("ledger.operations.total",
		metric.WithDescription("Ledger operations by outcome"),
	)
	if err != nil {
		otel.Handle(err)
		counter = noop.Int64Counter{}
	}

	s.operations = counter

	return s
}

// Deposit credits amount to the account and records a deposit transaction.
func (s *Service) Deposit(ctx context.Context, accountID uuid.UUID, amount moneypkg.Money, description string) (domain.LedgerResult, error) {
	return s.record(ctx, "Deposit", accountID, domain.TransactionTypeDeposit, amount, description)
}

// Withdraw debits amount from the account and records a withdrawal transaction.
// The balance may reach zero but never go below it.
func (s *Service) Withdraw(ctx context.Context, accountID uuid.UUID, amount moneypkg.Money, description string) (domain.LedgerResult, error) {
	return s.record(ctx, "Withdraw", accountID, domain.TransactionTypeWithdrawal, amount, description)
}

func (s *Service) record(ctx context.Context, op string, accountID uuid.UUID, typ domain.TransactionType, amount moneypkg.Money, description string) (res domain.LedgerResult, err error) {
	ctx, span := s.start(ctx, op, attribute.String("account.id", accountID.String()))
	defer func() { s.finish(ctx, span, op, err) }()

	if !amount.IsPositive() {
		return res, domain.ErrInvalidAmount
	}

	err = s.withAccount(ctx, accountID, func() error {
		err := s.repo.ExecTx(ctx, func(tx domain.LedgerTx) error {
			a, err := tx.GetAccountForUpdate(ctx, accountID)
			if err != nil {
				return err
			}

			balance, err := applyDelta(a.Balance, domain.SignedAmount(typ, amount))
			if err != nil {
				return err
			}

			now := s.now()

			t, err := tx.CreateTransaction(ctx, domain.CreateTransactionParams{
				ID:          uuid.New(),
				AccountID:   accountID,
				Type:        typ,
				Amount:      amount,
				Description: description,
				Timestamp:   now,
			})
			if err != nil {
				return err
			}

			a, err = tx.UpdateBalance(ctx, accountID, balance, now)
			if err != nil {
				return err
			}

			res = domain.LedgerResult{Transaction: t, Balance: a.Balance}

			return nil
		})
		if err != nil {
			return err
		}

		kind := domain.EventDeposited
		if typ == domain.TransactionTypeWithdrawal {
			kind = domain.EventWithdrawn
		}

		s.publish(ctx, domain.NewLedgerEvent(kind, res, res.Transaction.Timestamp))

		return nil
	})

	return res, err
}

// UpdateTransaction replaces the amount and type of an active transaction and
// moves the account balance by the difference. The timestamp is refreshed.
func (s *Service) UpdateTransaction(ctx context.Context, transactionID uuid.UUID, amount moneypkg.Money, typ domain.TransactionType) (res domain.LedgerResult, err error) {
	const op = "UpdateTransaction"

	ctx, span := s.start(ctx, op, attribute.String("transaction.id", transactionID.String()))
	defer func() { s.finish(ctx, span, op, err) }()

	if !amount.IsPositive() {
		return res, domain.ErrInvalidAmount
	}

	if !typ.Valid() {
		return res, domain.ErrInvalidTransactionType
	}

	res, err = s.mutate(ctx, transactionID, domain.EventUpdated, func(old domain.Transaction) (domain.UpdateTransactionParams, error) {
		if old.Deleted {
			return domain.UpdateTransactionParams{}, domain.ErrTransactionDeleted
		}

		return domain.UpdateTransactionParams{
			ID:        old.ID,
			Type:      typ,
			Amount:    amount,
			Timestamp: s.now(),
		}, nil
	})

	return res, err
}

// DeleteTransaction soft-deletes an active transaction and reverses its effect
// on the account balance.
func (s *Service) DeleteTransaction(ctx context.Context, transactionID uuid.UUID) (res domain.LedgerResult, err error) {
	const op = "DeleteTransaction"

	ctx, span := s.start(ctx, op, attribute.String("transaction.id", transactionID.String()))
	defer func() { s.finish(ctx, span, op, err) }()

	res, err = s.mutate(ctx, transactionID, domain.EventDeleted, func(old domain.Transaction) (domain.UpdateTransactionParams, error) {
		if old.Deleted {
			return domain.UpdateTransactionParams{}, domain.ErrTransactionDeleted
		}

		return domain.UpdateTransactionParams{
			ID:        old.ID,
			Type:      old.Type,
			Amount:    old.Amount,
			Timestamp: old.Timestamp,
			Deleted:   true,
		}, nil
	})

	return res, err
}

// RestoreTransaction reactivates a soft-deleted transaction and reapplies its
// effect on the account balance.
func (s *Service) RestoreTransaction(ctx context.Context, transactionID uuid.UUID) (res domain.LedgerResult, err error) {
	const op = "RestoreTransaction"

	ctx, span := s.start(ctx, op, attribute.String("transaction.id", transactionID.String()))
	defer func() { s.finish(ctx, span, op, err) }()

	res, err = s.mutate(ctx, transactionID, domain.EventRestored, func(old domain.Transaction) (domain.UpdateTransactionParams, error) {
		if !old.Deleted {
			return domain.UpdateTransactionParams{}, domain.ErrTransactionNotDeleted
		}

		return domain.UpdateTransactionParams{
			ID:        old.ID,
			Type:      old.Type,
			Amount:    old.Amount,
			Timestamp: old.Timestamp,
		}, nil
	})

	return res, err
}

// mutate rewrites an existing transaction under its account's lock.
//
// change receives the transaction as read under the row lock and returns the
// new state. The balance moves by the difference of the two contributions.
func (s *Service) mutate(ctx context.Context, transactionID uuid.UUID, kind domain.EventKind,
	change func(old domain.Transaction) (domain.UpdateTransactionParams, error),
) (domain.LedgerResult, error) {
	var res domain.LedgerResult

	owner, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return res, err
	}

	accountID := owner.AccountID

	err = s.withAccount(ctx, accountID, func() error {
		err := s.repo.ExecTx(ctx, func(tx domain.LedgerTx) error {
			a, err := tx.GetAccountForUpdate(ctx, accountID)
			if err != nil {
				return err
			}

			old, err := tx.GetTransactionForUpdate(ctx, transactionID)
			if err != nil {
				return err
			}

			arg, err := change(old)
			if err != nil {
				return err
			}

			next := domain.Transaction{Type: arg.Type, Amount: arg.Amount, Deleted: arg.Deleted}

			delta, err := next.Contribution().Sub(old.Contribution())
			if err != nil {
				return domain.ErrAmountOverflow
			}

			balance, err := applyDelta(a.Balance, delta)
			if err != nil {
				return err
			}

			t, err := tx.UpdateTransaction(ctx, arg)
			if err != nil {
				return err
			}

			a, err = tx.UpdateBalance(ctx, accountID, balance, s.now())
			if err != nil {
				return err
			}

			res = domain.LedgerResult{Transaction: t, Balance: a.Balance}

			return nil
		})
		if err != nil {
			return err
		}

		s.publish(ctx, domain.NewLedgerEvent(kind, res, s.now()))

		return nil
	})

	return res, err
}

// Statement returns the current balance and the account transactions newest
// first. Soft-deleted transactions are included only when includeDeleted is set.
func (s *Service) Statement(ctx context.Context, accountID uuid.UUID, includeDeleted bool) (st domain.Statement, err error) {
	const op = "Statement"

	ctx, span := s.start(ctx, op,
		attribute.String("account.id", accountID.String()),
		attribute.Bool("include_deleted", includeDeleted),
	)
	defer func() { s.finish(ctx, span, op, err) }()

	return s.repo.Statement(ctx, accountID, includeDeleted)
}

// withAccount runs fn holding the account key.
//
// A caller that does not get the key within the lock timeout, or before ctx
// ends, receives domain.ErrAccountBusy and fn is never run.
func (s *Service) withAccount(ctx context.Context, accountID uuid.UUID, fn func() error) error {
	lockCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.lockTimeout > 0 {
		lockCtx, cancel = context.WithTimeout(ctx, s.lockTimeout)
	}
	defer cancel()

	acquired := false

	err := s.locks.Do(lockCtx, accountID.String(), func() error {
		acquired = true
		return fn()
	})
	if err != nil && !acquired {
		zerolog.Ctx(ctx).Warn().Err(err).Str("account_id", accountID.String()).Msg("account lock not acquired")
		return fmt.Errorf("%w: %w", domain.ErrAccountBusy, err)
	}

	return err
}

// applyDelta returns balance+delta, rejecting results below zero.
func applyDelta(balance, delta moneypkg.Money) (moneypkg.Money, error) {
	next, err := balance.Add(delta)
	if err != nil {
		return 0, domain.ErrAmountOverflow
	}

	if next.IsNegative() {
		return 0, domain.ErrInsufficientFunds
	}

	return next, nil
}

func (s *Service) publish(ctx context.Context, e domain.LedgerEvent) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, e); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Str("kind", string(e.Kind)).
			Str("transaction_id", e.TransactionID.String()).
			Msg("ledger event not published")
	}
}

func (s *Service) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "ledger."+op, trace.WithAttributes(attrs...))
}

func (s *Service) finish(ctx context.Context, span trace.Span, op string, err error) {
	defer span.End()

	l := zerolog.Ctx(ctx)
	outcome := "ok"

	switch {
	case err == nil:
		l.Debug().Str("op", op).Msg("ledger operation committed")
	case domain.IsBusiness(err):
		outcome = "rejected"
		l.Info().Err(err).Str("op", op).Msg("ledger operation rejected")
	default:
		outcome = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.Error().Err(err).Str("op", op).Msg("ledger operation failed")
	}

	s.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}
