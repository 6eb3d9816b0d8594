// Package accountdelivery manages delivery layer of accounts.
package accountdelivery

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

// Service provides service layer interface needed by account delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package accountdelivery
type Service interface {
	Create(ctx context.Context, name string, initialBalance moneypkg.Money) (domain.Account, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Account, error)
}

// Handler facilitates account delivery layer logic.
type Handler struct {
	service Service
	digits  int32
}

// NewHandler returns account handler. Amounts are read and rendered with
// digits fraction digits.
func NewHandler(as Service, digits int32) Handler {
	return Handler{service: as, digits: digits}
}

// AccountView is the client facing representation of an account.
type AccountView struct {
	ID                uuid.UUID      `json:"id"`
	Name              string         `json:"name"`
	Balance           string         `json:"balance"`
	BalanceMinorUnits moneypkg.Money `json:"balance_minor_units"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// NewAccountView renders a with digits fraction digits.
func NewAccountView(a domain.Account, digits int32) AccountView {
	return AccountView{
		ID:                a.ID,
		Name:              a.Name,
		Balance:           a.Balance.StringFixed(digits),
		BalanceMinorUnits: a.Balance,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

type data struct {
	Account AccountView `json:"account"`
}

type response struct {
	Data data `json:"data,omitempty"`
}

type createRequest struct {
	Name           string `json:"name" binding:"required,min=2,max=255"`
	InitialBalance string `json:"initial_balance" binding:"omitempty,balance"`
}

// Create handles http request to create account.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	var balance moneypkg.Money

	if req.InitialBalance != "" {
		var err error

		balance, err = moneypkg.ParseNonNegative(req.InitialBalance, h.digits)
		if err != nil {
			l.Info().Err(err).Send()
			gctx.JSON(apierror.Response(err))

			return
		}
	}

	account, err := h.service.Create(ctx, req.Name, balance)
	if err != nil {
		gctx.JSON(apierror.Response(err))
		return
	}

	gctx.JSON(http.StatusCreated, response{Data: data{NewAccountView(account, h.digits)}})
}

type getRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// Get handles http request to get account.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req getRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Error(err))

		return
	}

	account, err := h.service.Get(ctx, id)
	if err != nil {
		gctx.JSON(apierror.Response(err))
		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{NewAccountView(account, h.digits)}})
}
