// Package ledgerdelivery manages delivery layer of balance changing operations.
package ledgerdelivery

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/apierror"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Service provides service layer interface needed by ledger delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package ledgerdelivery
type Service interface {
	Deposit(ctx context.Context, accountID uuid.UUID, amount moneypkg.Money, description string) (domain.LedgerResult, error)
	Withdraw(ctx context.Context, accountID uuid.UUID, amount moneypkg.Money, description string) (domain.LedgerResult, error)
	Statement(ctx context.Context, accountID uuid.UUID, includeDeleted bool) (domain.Statement, error)
	UpdateTransaction(ctx context.Context, transactionID uuid.UUID, amount moneypkg.Money, typ domain.TransactionType) (domain.LedgerResult, error)
	DeleteTransaction(ctx context.Context, transactionID uuid.UUID) (domain.LedgerResult, error)
	RestoreTransaction(ctx context.Context, transactionID uuid.UUID) (domain.LedgerResult, error)
}

// Handler facilitates ledger delivery layer logic.
type Handler struct {
	service Service
	digits  int32
}

// NewHandler returns ledger handler. Amounts are read and rendered with
// digits fraction digits.
func NewHandler(ls Service, digits int32) *Handler {
	return &Handler{
		service: ls,
		digits:  digits,
	}
}

// TransactionView is the client facing representation of a transaction.
type TransactionView struct {
	ID               uuid.UUID              `json:"id"`
	AccountID        uuid.UUID              `json:"account_id"`
	Type             domain.TransactionType `json:"type"`
	Amount           string                 `json:"amount"`
	AmountMinorUnits moneypkg.Money         `json:"amount_minor_units"`
	Description      string                 `json:"description,omitempty"`
	Timestamp        time.Time              `json:"timestamp"`
	Deleted          bool                   `json:"deleted"`
}

// ResultView is the client facing result of a balance changing operation.
type ResultView struct {
	Transaction       TransactionView `json:"transaction"`
	Balance           string          `json:"balance"`
	BalanceMinorUnits moneypkg.Money  `json:"balance_minor_units"`
}

// StatementView is the client facing account statement.
type StatementView struct {
	AccountID                uuid.UUID         `json:"account_id"`
	CurrentBalance           string            `json:"current_balance"`
	CurrentBalanceMinorUnits moneypkg.Money    `json:"current_balance_minor_units"`
	Transactions             []TransactionView `json:"transactions"`
}

// NewTransactionView renders t with digits fraction digits.
func NewTransactionView(t domain.Transaction, digits int32) TransactionView {
	return TransactionView{
		ID:               t.ID,
		AccountID:        t.AccountID,
		Type:             t.Type,
		Amount:           t.Amount.StringFixed(digits),
		AmountMinorUnits: t.Amount,
		Description:      t.Description,
		Timestamp:        t.Timestamp,
		Deleted:          t.Deleted,
	}
}

// NewResultView renders r with digits fraction digits.
func NewResultView(r domain.LedgerResult, digits int32) ResultView {
	return ResultView{
		Transaction:       NewTransactionView(r.Transaction, digits),
		Balance:           r.Balance.StringFixed(digits),
		BalanceMinorUnits: r.Balance,
	}
}

// NewStatementView renders s with digits fraction digits.
func NewStatementView(s domain.Statement, digits int32) StatementView {
	transactions := make([]TransactionView, 0, len(s.Transactions))
	for _, t := range s.Transactions {
		transactions = append(transactions, NewTransactionView(t, digits))
	}

	return StatementView{
		AccountID:                s.AccountID,
		CurrentBalance:           s.CurrentBalance.StringFixed(digits),
		CurrentBalanceMinorUnits: s.CurrentBalance,
		Transactions:             transactions,
	}
}

type uriRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// bindID reads the id path parameter. On failure the response is already written.
func bindID(gctx *gin.Context) (uuid.UUID, bool) {
	l := zerolog.Ctx(gctx.Request.Context())

	var req uriRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return uuid.Nil, false
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Error(err))

		return uuid.Nil, false
	}

	return id, true
}

type movementRequest struct {
	Amount      string `json:"amount" binding:"required,amount"`
	Description string `json:"description" binding:"max=255"`
}

// Deposit handles http request to add money to an account.
func (h *Handler) Deposit(gctx *gin.Context) {
	h.movement(gctx, h.service.Deposit)
}

// Withdraw handles http request to take money from an account.
func (h *Handler) Withdraw(gctx *gin.Context) {
	h.movement(gctx, h.service.Withdraw)
}

type movementFunc func(ctx context.Context, accountID uuid.UUID, amount moneypkg.Money, description string) (domain.LedgerResult, error)

func (h *Handler) movement(gctx *gin.Context, record movementFunc) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	accountID, ok := bindID(gctx)
	if !ok {
		return
	}

	var req movementRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	amount, err := moneypkg.ParsePositive(req.Amount, h.digits)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(apierror.Response(err))

		return
	}

	result, err := record(ctx, accountID, amount, req.Description)
	if err != nil {
		gctx.JSON(apierror.Response(err))
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: NewResultView(result, h.digits)})
}

type statementRequest struct {
	IncludeDeleted bool `form:"include_deleted"`
}

// Statement handles http request to get account balance with its history.
func (h *Handler) Statement(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	accountID, ok := bindID(gctx)
	if !ok {
		return
	}

	var req statementRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	statement, err := h.service.Statement(ctx, accountID, req.IncludeDeleted)
	if err != nil {
		gctx.JSON(apierror.Response(err))
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: NewStatementView(statement, h.digits)})
}

type updateRequest struct {
	Amount string `json:"amount" binding:"required,amount"`
	Type   string `json:"type" binding:"required,oneof=deposit withdrawal"`
}

// Update handles http request to change amount and type of a transaction.
func (h *Handler) Update(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	transactionID, ok := bindID(gctx)
	if !ok {
		return
	}

	var req updateRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	amount, err := moneypkg.ParsePositive(req.Amount, h.digits)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(apierror.Response(err))

		return
	}

	result, err := h.service.UpdateTransaction(ctx, transactionID, amount, domain.TransactionType(req.Type))
	if err != nil {
		gctx.JSON(apierror.Response(err))
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: NewResultView(result, h.digits)})
}

// Delete handles http request to soft delete a transaction.
func (h *Handler) Delete(gctx *gin.Context) {
	h.toggle(gctx, h.service.DeleteTransaction)
}

// Restore handles http request to restore a soft deleted transaction.
func (h *Handler) Restore(gctx *gin.Context) {
	h.toggle(gctx, h.service.RestoreTransaction)
}

func (h *Handler) toggle(gctx *gin.Context, change func(ctx context.Context, id uuid.UUID) (domain.LedgerResult, error)) {
	transactionID, ok := bindID(gctx)
	if !ok {
		return
	}

	result, err := change(gctx.Request.Context(), transactionID)
	if err != nil {
		gctx.JSON(apierror.Response(err))
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: NewResultView(result, h.digits)})
}
