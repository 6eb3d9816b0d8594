// Package telemetrypkg installs OpenTelemetry trace and metric providers that
// report through zerolog.
package telemetrypkg

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config holds telemetry settings.
type Config struct {
	ServiceName    string
	Environment    string
	ExportInterval time.Duration
}

// Init sets the global tracer and meter providers.
//
// Finished spans and periodic metric snapshots are written to logger.
// The returned shutdown flushes both providers and must be called on exit.
func Init(cfg Config, logger zerolog.Logger) (shutdown func(context.Context) error, err error) {
	l := logger.With().Str("component", "telemetry").Logger()

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(cfg.ServiceName),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = time.Minute
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(NewMetricExporter(l),
			sdkmetric.WithInterval(interval),
		)),
	)

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(NewSpanExporter(l),
			sdktrace.WithBatchTimeout(5*time.Second),
		),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		l.Error().Err(err).Msg("telemetry error")
	}))
	otel.SetMeterProvider(meterProvider)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	l.Info().Dur("export_interval", interval).Msg("telemetry initialized")

	shutdown = func(ctx context.Context) error {
		return errors.Join(
			tracerProvider.Shutdown(ctx),
			meterProvider.Shutdown(ctx),
		)
	}

	return shutdown, nil
}
