package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/go-petr/pet-ledger/cmd/httpserver"
	"github.com/go-petr/pet-ledger/internal/ledgerevent"
	"github.com/go-petr/pet-ledger/internal/ledgerservice"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/telemetrypkg"
)

func main() {
	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)

	if err := config.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	if config.TelemetryEnabled {
		shutdownTelemetry, err := telemetrypkg.Init(telemetrypkg.Config{
			ServiceName:    "pet-ledger",
			Environment:    config.Environment,
			ExportInterval: config.TelemetryInterval,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("cannot init telemetry")
		}

		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
			defer cancel()

			if err := shutdownTelemetry(ctx); err != nil {
				logger.Error().Err(err).Msg("telemetry shutdown failed")
			}
		}()
	}

	store, err := httpserver.OpenStore(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot open store")
	}
	defer store.Close()

	var publisher ledgerservice.Publisher = ledgerevent.Nop{}

	if len(config.KafkaBrokers) > 0 {
		kafka := ledgerevent.NewKafka(config.KafkaBrokers, config.KafkaTopic, logger)
		defer kafka.Close()

		publisher = kafka
	}

	if config.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	server, err := httpserver.New(store, publisher, logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create server")
	}

	srv := &http.Server{
		Addr:    config.ServerAddress,
		Handler: server,
	}

	go func() {
		logger.Info().Str("address", config.ServerAddress).Str("driver", config.DBDriver).Msg("server started")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("cannot start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
}
