// Package httpserver manages server creation and api routing.
package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/accountdelivery"
	"github.com/go-petr/pet-ledger/internal/accountservice"
	"github.com/go-petr/pet-ledger/internal/ledgerdelivery"
	"github.com/go-petr/pet-ledger/internal/ledgerservice"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Server holds handlers router and configuration.
type Server struct {
	Engine *gin.Engine
	Config configpkg.Config
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// New creates Server type with instantiated domains and routes.
func New(store Store, publisher ledgerservice.Publisher, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation("amount", moneypkg.ValidAmount); err != nil {
			return nil, errors.New("cannot register amount validator")
		}

		if err := v.RegisterValidation("balance", moneypkg.ValidBalance); err != nil {
			return nil, errors.New("cannot register balance validator")
		}
	}

	digits := config.CurrencyDigits()

	accountService := accountservice.New(store.Accounts)
	ledgerService := ledgerservice.New(store.Ledger,
		ledgerservice.WithPublisher(publisher),
		ledgerservice.WithLockTimeout(config.LockWaitTimeout),
	)

	accountHandler := accountdelivery.NewHandler(accountService, digits)
	ledgerHandler := ledgerdelivery.NewHandler(ledgerService, digits)

	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))

	engine.GET("/health", func(gctx *gin.Context) {
		gctx.JSON(http.StatusOK, web.Response{Data: gin.H{"status": "ok"}})
	})

	engine.POST("/accounts", accountHandler.Create)
	engine.GET("/accounts/:id", accountHandler.Get)
	engine.POST("/accounts/:id/deposit", ledgerHandler.Deposit)
	engine.POST("/accounts/:id/withdraw", ledgerHandler.Withdraw)
	engine.GET("/accounts/:id/statement", ledgerHandler.Statement)

	engine.PUT("/transactions/:id", ledgerHandler.Update)
	engine.DELETE("/transactions/:id", ledgerHandler.Delete)
	engine.POST("/transactions/:id/restore", ledgerHandler.Restore)

	server := &Server{
		Engine: engine,
		Config: config,
	}

	return server, nil
}
