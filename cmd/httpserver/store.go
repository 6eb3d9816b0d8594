package httpserver

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // postgres driver
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/go-petr/pet-ledger/internal/accountrepo"
	"github.com/go-petr/pet-ledger/internal/accountservice"
	"github.com/go-petr/pet-ledger/internal/gormrepo"
	"github.com/go-petr/pet-ledger/internal/ledgerrepo"
	"github.com/go-petr/pet-ledger/internal/ledgerservice"
	"github.com/go-petr/pet-ledger/internal/memrepo"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
)

// Store holds the repositories used by the services.
type Store struct {
	Accounts accountservice.Repo
	Ledger   ledgerservice.Repo

	close func() error
}

// Close releases the underlying connection.
func (s Store) Close() error {
	if s.close == nil {
		return nil
	}

	return s.close()
}

// PostgresStore returns Store backed by PostgreSQL.
func PostgresStore(db *sql.DB) Store {
	return Store{
		Accounts: accountrepo.NewRepoPGS(db),
		Ledger:   ledgerrepo.NewRepoPGS(db),
		close:    db.Close,
	}
}

// MySQLStore returns Store backed by MySQL through GORM.
func MySQLStore(db *gorm.DB) Store {
	repo := gormrepo.New(db)

	return Store{
		Accounts: repo,
		Ledger:   repo,
		close: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}

			return sqlDB.Close()
		},
	}
}

// MemoryStore returns Store that keeps everything in process memory.
func MemoryStore() Store {
	repo := memrepo.New()

	return Store{
		Accounts: repo,
		Ledger:   repo,
	}
}

// OpenStore connects to the storage selected by config.DBDriver.
func OpenStore(config configpkg.Config, logger zerolog.Logger) (Store, error) {
	pool := dbpkg.PoolConfig{
		MaxOpenConns:    config.DBMaxOpenConns,
		MaxIdleConns:    config.DBMaxIdleConns,
		ConnMaxLifetime: config.DBConnMaxLifetime,
	}

	switch config.DBDriver {
	case configpkg.DriverPostgres:
		db, err := dbpkg.Setup(config.DBDriver, config.DBSource)
		if err != nil {
			return Store{}, fmt.Errorf("cannot connect to postgres: %w", err)
		}

		dbpkg.Configure(db, pool)

		return PostgresStore(db), nil
	case configpkg.DriverMySQL:
		db, err := gormrepo.Open(config.DBSource, pool, logger)
		if err != nil {
			return Store{}, fmt.Errorf("cannot connect to mysql: %w", err)
		}

		if err := gormrepo.Migrate(db); err != nil {
			return Store{}, fmt.Errorf("cannot migrate mysql schema: %w", err)
		}

		return MySQLStore(db), nil
	case configpkg.DriverMemory:
		logger.Warn().Msg("using in-memory storage, data is lost on restart")
		return MemoryStore(), nil
	}

	return Store{}, fmt.Errorf("%w: %q", configpkg.ErrUnsupportedDriver, config.DBDriver)
}
