// Package gormrepo stores the ledger in MySQL through GORM.
package gormrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
)

// accountModel maps the accounts table.
type accountModel struct {
	ID                string    `gorm:"primaryKey;type:char(36)"`
	Name              string    `gorm:"type:varchar(255);not null"`
	BalanceMinorUnits int64     `gorm:"not null;check:chk_accounts_balance,balance_minor_units >= 0"`
	CreatedAt         time.Time `gorm:"type:datetime(6);not null;autoCreateTime:false"`
	UpdatedAt         time.Time `gorm:"type:datetime(6);not null;autoUpdateTime:false"`
}

func (*accountModel) TableName() string {
	return "accounts"
}

func (m accountModel) toDomain() domain.Account {
	return domain.Account{
		ID:        uuid.MustParse(m.ID),
		Name:      m.Name,
		Balance:   moneypkg.Money(m.BalanceMinorUnits),
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

// transactionModel maps the transactions table.
type transactionModel struct {
	ID               string    `gorm:"primaryKey;type:char(36)"`
	AccountID        string    `gorm:"type:char(36);not null;index:idx_transactions_account_timestamp,priority:1"`
	Type             string    `gorm:"type:varchar(16);not null"`
	AmountMinorUnits int64     `gorm:"not null;check:chk_transactions_amount,amount_minor_units > 0"`
	Description      string    `gorm:"type:varchar(255);not null;default:''"`
	Timestamp        time.Time `gorm:"type:datetime(6);not null;index:idx_transactions_account_timestamp,priority:2"`
	Deleted          bool      `gorm:"not null;default:false"`
}

func (*transactionModel) TableName() string {
	return "transactions"
}

func (m transactionModel) toDomain() domain.Transaction {
	return domain.Transaction{
		ID:          uuid.MustParse(m.ID),
		AccountID:   uuid.MustParse(m.AccountID),
		Type:        domain.TransactionType(m.Type),
		Amount:      moneypkg.Money(m.AmountMinorUnits),
		Description: m.Description,
		Timestamp:   m.Timestamp.UTC(),
		Deleted:     m.Deleted,
	}
}

// Repo facilitates ledger repository layer logic on top of GORM.
type Repo struct {
	db *gorm.DB
}

// New returns Repo using an already opened GORM connection.
func New(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Open connects to MySQL.
//
// The DSN must contain parseTime=true and clientFoundRows=true so that updates
// report matched rows.
func Open(dsn string, pool dbpkg.PoolConfig, l zerolog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 newLogger(l),
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("gorm.Open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db.DB: %w", err)
	}

	dbpkg.Configure(sqlDB, pool)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("mysql ping failed: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the ledger tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&accountModel{}, &transactionModel{})
}

type zerologWriter struct {
	l zerolog.Logger
}

func (w zerologWriter) Printf(format string, args ...any) {
	w.l.Debug().Msgf(format, args...)
}

func newLogger(l zerolog.Logger) logger.Interface {
	level := logger.Warn
	if l.GetLevel() <= zerolog.DebugLevel {
		level = logger.Info
	}

	return logger.New(zerologWriter{l: l.With().Str("component", "gorm").Logger()}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// Create creates the account and then returns it.
func (r *Repo) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	m := accountModel{
		ID:                arg.ID.String(),
		Name:              arg.Name,
		BalanceMinorUnits: int64(arg.Balance),
		CreatedAt:         arg.CreatedAt,
		UpdatedAt:         arg.CreatedAt,
	}

	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		l.Error().Err(err).Msgf("Create(ctx, %+v)", arg)

		if errors.Is(err, gorm.ErrCheckConstraintViolated) {
			return domain.Account{}, domain.ErrNegativeAmount
		}

		return domain.Account{}, errorspkg.ErrInternal
	}

	return m.toDomain(), nil
}

// Get returns the account with the given id.
func (r *Repo) Get(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return getAccount(ctx, r.db.WithContext(ctx), id)
}

// GetTransaction returns the transaction with the given id.
func (r *Repo) GetTransaction(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	return getTransaction(ctx, r.db.WithContext(ctx), id)
}

// Statement returns the account balance and its transactions read from one snapshot.
func (r *Repo) Statement(ctx context.Context, accountID uuid.UUID, includeDeleted bool) (domain.Statement, error) {
	var s domain.Statement

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := getAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}

		q := tx.Where("account_id = ?", accountID.String())
		if !includeDeleted {
			q = q.Where("deleted = ?", false)
		}

		var models []transactionModel
		if err := q.Order("timestamp DESC").Order("id").Find(&models).Error; err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Send()
			return errorspkg.ErrInternal
		}

		s.AccountID = a.ID
		s.CurrentBalance = a.Balance
		s.Transactions = make([]domain.Transaction, len(models))

		for i := range models {
			s.Transactions[i] = models[i].toDomain()
		}

		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})

	return s, internal(ctx, err)
}

// ExecTx runs fn within a single database transaction.
//
// The transaction is committed only when fn returns nil.
func (r *Repo) ExecTx(ctx context.Context, fn func(domain.LedgerTx) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepo{db: tx})
	})

	return internal(ctx, err)
}

// internal hides driver errors that escaped the repository behind ErrInternal.
func internal(ctx context.Context, err error) error {
	if err == nil || domain.KindOf(err) != domain.KindUnknown {
		return err
	}

	zerolog.Ctx(ctx).Error().Err(err).Send()

	return errorspkg.ErrInternal
}

func getAccount(ctx context.Context, db *gorm.DB, id uuid.UUID) (domain.Account, error) {
	var m accountModel

	if err := db.Where("id = ?", id.String()).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Account{}, domain.ErrAccountNotFound
		}

		zerolog.Ctx(ctx).Error().Err(err).Send()

		return domain.Account{}, errorspkg.ErrInternal
	}

	return m.toDomain(), nil
}

func getTransaction(ctx context.Context, db *gorm.DB, id uuid.UUID) (domain.Transaction, error) {
	var m transactionModel

	if err := db.Where("id = ?", id.String()).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Transaction{}, domain.ErrTransactionNotFound
		}

		zerolog.Ctx(ctx).Error().Err(err).Send()

		return domain.Transaction{}, errorspkg.ErrInternal
	}

	return m.toDomain(), nil
}

// txRepo implements domain.LedgerTx on a GORM transaction.
type txRepo struct {
	db *gorm.DB
}

func (r *txRepo) forUpdate(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *txRepo) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return getAccount(ctx, r.forUpdate(ctx), id)
}

func (r *txRepo) UpdateBalance(ctx context.Context, id uuid.UUID, balance moneypkg.Money, updatedAt time.Time) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	res := r.db.WithContext(ctx).Model(&accountModel{}).
		Where("id = ?", id.String()).
		Updates(map[string]any{
			"balance_minor_units": int64(balance),
			"updated_at":          updatedAt,
		})
	if res.Error != nil {
		l.Error().Err(res.Error).Send()

		if errors.Is(res.Error, gorm.ErrCheckConstraintViolated) {
			return domain.Account{}, domain.ErrInsufficientFunds
		}

		return domain.Account{}, errorspkg.ErrInternal
	}

	if res.RowsAffected == 0 {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return getAccount(ctx, r.db.WithContext(ctx), id)
}

func (r *txRepo) CreateTransaction(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	if _, err := getAccount(ctx, r.db.WithContext(ctx), arg.AccountID); err != nil {
		return domain.Transaction{}, err
	}

	if !arg.Type.Valid() {
		return domain.Transaction{}, domain.ErrInvalidTransactionType
	}

	m := transactionModel{
		ID:               arg.ID.String(),
		AccountID:        arg.AccountID.String(),
		Type:             string(arg.Type),
		AmountMinorUnits: int64(arg.Amount),
		Description:      arg.Description,
		Timestamp:        arg.Timestamp,
	}

	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		l.Error().Err(err).Msgf("CreateTransaction(ctx, %+v)", arg)

		if errors.Is(err, gorm.ErrCheckConstraintViolated) {
			return domain.Transaction{}, domain.ErrInvalidAmount
		}

		return domain.Transaction{}, errorspkg.ErrInternal
	}

	return m.toDomain(), nil
}

func (r *txRepo) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	return getTransaction(ctx, r.forUpdate(ctx), id)
}

func (r *txRepo) UpdateTransaction(ctx context.Context, arg domain.UpdateTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	if !arg.Type.Valid() {
		return domain.Transaction{}, domain.ErrInvalidTransactionType
	}

	res := r.db.WithContext(ctx).Model(&transactionModel{}).
		Where("id = ?", arg.ID.String()).
		Updates(map[string]any{
			"type":               string(arg.Type),
			"amount_minor_units": int64(arg.Amount),
			"timestamp":          arg.Timestamp,
			"deleted":            arg.Deleted,
		})
	if res.Error != nil {
		l.Error().Err(res.Error).Msgf("UpdateTransaction(ctx, %+v)", arg)

		if errors.Is(res.Error, gorm.ErrCheckConstraintViolated) {
			return domain.Transaction{}, domain.ErrInvalidAmount
		}

		return domain.Transaction{}, errorspkg.ErrInternal
	}

	if res.RowsAffected == 0 {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}

	return getTransaction(ctx, r.db.WithContext(ctx), arg.ID)
}
