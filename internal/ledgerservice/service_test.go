package ledgerservice

import (
	"context"
	"errors"
	"testing"
	"time"

	gomock "github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/memrepo"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
)

func TestStatementPassthrough(t *testing.T) {
	t.Parallel()

	accountID := uuid.New()
	statement := domain.Statement{
		AccountID:      accountID,
		CurrentBalance: 700,
		Transactions: []domain.Transaction{
			{ID: uuid.New(), AccountID: accountID, Type: domain.TransactionTypeWithdrawal, Amount: 300},
		},
	}

	testCases := []struct {
		name           string
		includeDeleted bool
		repoResult     domain.Statement
		repoErr        error
	}{
		{
			name:       "OK",
			repoResult: statement,
		},
		{
			name:           "IncludeDeleted",
			includeDeleted: true,
			repoResult:     statement,
		},
		{
			name:    "AccountNotFound",
			repoErr: domain.ErrAccountNotFound,
		},
		{
			name:    "Internal",
			repoErr: errorspkg.ErrInternal,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			repo := NewMockRepo(ctrl)
			repo.EXPECT().
				Statement(gomock.Any(), gomock.Eq(accountID), gomock.Eq(tc.includeDeleted)).
				Times(1).
				Return(tc.repoResult, tc.repoErr)

			got, err := New(repo).Statement(context.Background(), accountID, tc.includeDeleted)
			if err != tc.repoErr {
				t.Fatalf("service.Statement returned error: %v, want %v", err, tc.repoErr)
			}

			if diff := cmp.Diff(tc.repoResult, got); diff != "" {
				t.Errorf("service.Statement returned unexpected difference (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStorageErrors(t *testing.T) {
	t.Parallel()

	transaction := domain.Transaction{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		Type:      domain.TransactionTypeDeposit,
		Amount:    100,
	}

	testCases := []struct {
		name       string
		buildStubs func(repo *MockRepo, publisher *MockPublisher)
		run        func(s *Service) error
		wantErr    error
	}{
		{
			name: "DepositExecTxErr",
			buildStubs: func(repo *MockRepo, publisher *MockPublisher) {
				repo.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(1).Return(errorspkg.ErrInternal)
				publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)
			},
			run: func(s *Service) error {
				_, err := s.Deposit(context.Background(), transaction.AccountID, 10, "")
				return err
			},
			wantErr: errorspkg.ErrInternal,
		},
		{
			name: "DepositInvalidAmountSkipsStorage",
			buildStubs: func(repo *MockRepo, publisher *MockPublisher) {
				repo.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(0)
				publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)
			},
			run: func(s *Service) error {
				_, err := s.Deposit(context.Background(), transaction.AccountID, 0, "")
				return err
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "UpdateLookupErr",
			buildStubs: func(repo *MockRepo, publisher *MockPublisher) {
				repo.EXPECT().
					GetTransaction(gomock.Any(), gomock.Eq(transaction.ID)).
					Times(1).
					Return(domain.Transaction{}, errorspkg.ErrInternal)
				repo.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(0)
				publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)
			},
			run: func(s *Service) error {
				_, err := s.UpdateTransaction(context.Background(), transaction.ID, 10, domain.TransactionTypeDeposit)
				return err
			},
			wantErr: errorspkg.ErrInternal,
		},
		{
			name: "DeleteExecTxErr",
			buildStubs: func(repo *MockRepo, publisher *MockPublisher) {
				repo.EXPECT().
					GetTransaction(gomock.Any(), gomock.Eq(transaction.ID)).
					Times(1).
					Return(transaction, nil)
				repo.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(1).Return(errorspkg.ErrInternal)
				publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)
			},
			run: func(s *Service) error {
				_, err := s.DeleteTransaction(context.Background(), transaction.ID)
				return err
			},
			wantErr: errorspkg.ErrInternal,
		},
		{
			name: "RestoreAccountVanished",
			buildStubs: func(repo *MockRepo, publisher *MockPublisher) {
				repo.EXPECT().
					GetTransaction(gomock.Any(), gomock.Eq(transaction.ID)).
					Times(1).
					Return(transaction, nil)
				repo.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(1).Return(domain.ErrAccountNotFound)
				publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)
			},
			run: func(s *Service) error {
				_, err := s.RestoreTransaction(context.Background(), transaction.ID)
				return err
			},
			wantErr: domain.ErrAccountNotFound,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			repo := NewMockRepo(ctrl)
			publisher := NewMockPublisher(ctrl)
			tc.buildStubs(repo, publisher)

			err := tc.run(New(repo, WithPublisher(publisher)))
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("got error %v, want %v", err, tc.wantErr)
			}
		})
	}
}

type eqLedgerEventMatcher struct {
	kind    domain.EventKind
	balance moneypkg.Money
}

func (e eqLedgerEventMatcher) Matches(x interface{}) bool {
	ev, ok := x.(domain.LedgerEvent)
	if !ok {
		return false
	}

	return ev.Kind == e.kind && ev.Balance == e.balance
}

func (e eqLedgerEventMatcher) String() string {
	return "matches event " + string(e.kind) + " with balance " + e.balance.StringFixed(2)
}

func TestPublishedEvent(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	publisher := NewMockPublisher(ctrl)

	repo := memrepo.New()
	account, err := repo.Create(context.Background(), domain.CreateAccountParams{
		ID: uuid.New(), Name: "events", Balance: 1000, CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("repo.Create returned error: %v", err)
	}

	publisher.EXPECT().
		Publish(gomock.Any(), eqLedgerEventMatcher{domain.EventWithdrawn, 400}).
		Times(1).
		Return(nil)

	s := New(repo, WithPublisher(publisher))

	if _, err := s.Withdraw(context.Background(), account.ID, 600, "rent"); err != nil {
		t.Fatalf("service.Withdraw returned error: %v", err)
	}
}
