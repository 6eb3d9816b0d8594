//go:build integration

package accountrepo_test

import (
	"context"
	"database/sql"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"

	"github.com/go-petr/pet-ledger/internal/accountrepo"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/integrationtest"
	"github.com/go-petr/pet-ledger/internal/integrationtest/helpers"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

var (
	dbDriver string
	dbSource string
	ctx      context.Context
)

func TestMain(m *testing.M) {
	config, err := configpkg.Load("../../configs")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	dbDriver = config.DBDriver
	dbSource = config.DBSource

	logger := middleware.CreateLogger(config)
	ctx = logger.WithContext(context.Background())

	os.Exit(m.Run())
}

func TestCreate(t *testing.T) {
	testCases := []struct {
		name    string
		balance moneypkg.Money
		wantErr error
	}{
		{
			name:    "OK",
			balance: randompkg.MoneyBetween(0, 10_000),
		},
		{
			name:    "ZeroBalance",
			balance: 0,
		},
		{
			name:    "NegativeBalance",
			balance: -1,
			wantErr: domain.ErrNegativeAmount,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tx := integrationtest.SetupTX(t, dbDriver, dbSource)
			accountRepo := accountrepo.NewRepoPGS(tx)

			arg := domain.CreateAccountParams{
				ID:        uuid.New(),
				Name:      randompkg.Name(),
				Balance:   tc.balance,
				CreatedAt: helpers.Now(),
			}

			got, err := accountRepo.Create(ctx, arg)
			if tc.wantErr != nil {
				if err != tc.wantErr {
					t.Fatalf("accountRepo.Create(ctx, %+v) returned error: %v, want %v", arg, err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("accountRepo.Create(ctx, %+v) returned error: %v", arg, err)
			}

			want := domain.Account{
				ID:        arg.ID,
				Name:      arg.Name,
				Balance:   arg.Balance,
				CreatedAt: arg.CreatedAt,
				UpdatedAt: arg.CreatedAt,
			}

			compareTime := cmpopts.EquateApproxTime(time.Microsecond)
			if diff := cmp.Diff(want, got, compareTime); diff != "" {
				t.Errorf("accountRepo.Create(ctx, %+v) returned unexpected difference (-want +got):\n%s", arg, diff)
			}
		})
	}
}

func TestGet(t *testing.T) {
	testCases := []struct {
		name        string
		wantAccount func(tx *sql.Tx) domain.Account
		wantErr     error
	}{
		{
			name: "OK",
			wantAccount: func(tx *sql.Tx) domain.Account {
				return helpers.SeedAccountWith1000Balance(t, tx)
			},
		},
		{
			name: "AccountNotFound",
			wantAccount: func(tx *sql.Tx) domain.Account {
				return domain.Account{ID: uuid.New()}
			},
			wantErr: domain.ErrAccountNotFound,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tx := integrationtest.SetupTX(t, dbDriver, dbSource)
			want := tc.wantAccount(tx)
			accountRepo := accountrepo.NewRepoPGS(tx)

			for _, get := range []func(context.Context, uuid.UUID) (domain.Account, error){
				accountRepo.Get,
				accountRepo.GetForUpdate,
			} {
				got, err := get(ctx, want.ID)
				if tc.wantErr != nil {
					if err != tc.wantErr {
						t.Fatalf("get(ctx, %v) returned error: %v, want %v", want.ID, err, tc.wantErr)
					}
					continue
				}
				if err != nil {
					t.Fatalf("get(ctx, %v) returned error: %v", want.ID, err)
				}

				if diff := cmp.Diff(want, got); diff != "" {
					t.Errorf("get(ctx, %v) returned unexpected difference (-want +got):\n%s", want.ID, diff)
				}
			}
		})
	}
}

func TestUpdateBalance(t *testing.T) {
	testCases := []struct {
		name    string
		balance moneypkg.Money
		missing bool
		wantErr error
	}{
		{
			name:    "OK",
			balance: 2300,
		},
		{
			name:    "Zero",
			balance: 0,
		},
		{
			name:    "InsufficientFunds",
			balance: -1,
			wantErr: domain.ErrInsufficientFunds,
		},
		{
			name:    "AccountNotFound",
			balance: 10,
			missing: true,
			wantErr: domain.ErrAccountNotFound,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tx := integrationtest.SetupTX(t, dbDriver, dbSource)
			account := helpers.SeedAccountWith1000Balance(t, tx)
			if tc.missing {
				account.ID = uuid.New()
			}

			accountRepo := accountrepo.NewRepoPGS(tx)
			updatedAt := helpers.Now().Add(time.Minute)

			got, err := accountRepo.UpdateBalance(ctx, account.ID, tc.balance, updatedAt)
			if tc.wantErr != nil {
				if err != tc.wantErr {
					t.Fatalf("accountRepo.UpdateBalance returned error: %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("accountRepo.UpdateBalance returned error: %v", err)
			}

			want := account
			want.Balance = tc.balance
			want.UpdatedAt = updatedAt

			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("accountRepo.UpdateBalance returned unexpected difference (-want +got):\n%s", diff)
			}
		})
	}
}
