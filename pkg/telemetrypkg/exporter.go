package telemetrypkg

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// SpanExporter writes finished spans to a zerolog logger.
type SpanExporter struct {
	l zerolog.Logger
}

// NewSpanExporter returns SpanExporter writing to l.
func NewSpanExporter(l zerolog.Logger) *SpanExporter {
	return &SpanExporter{l: l}
}

// ExportSpans implements sdktrace.SpanExporter.
func (e *SpanExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		event := e.l.Debug()
		if s.Status().Code == codes.Error {
			event = e.l.Warn().Str("status_description", s.Status().Description)
		}

		event.
			Str("span", s.Name()).
			Str("trace_id", s.SpanContext().TraceID().String()).
			Str("span_id", s.SpanContext().SpanID().String()).
			Dur("duration", s.EndTime().Sub(s.StartTime())).
			Str("attributes", encode(s.Attributes()...)).
			Msg("span finished")
	}

	return nil
}

// Shutdown implements sdktrace.SpanExporter.
func (e *SpanExporter) Shutdown(context.Context) error {
	return nil
}

// MetricExporter writes metric snapshots to a zerolog logger.
type MetricExporter struct {
	l zerolog.Logger
}

// NewMetricExporter returns MetricExporter writing to l.
func NewMetricExporter(l zerolog.Logger) *MetricExporter {
	return &MetricExporter{l: l}
}

// Temporality implements sdkmetric.Exporter.
func (e *MetricExporter) Temporality(k sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(k)
}

// Aggregation implements sdkmetric.Exporter.
func (e *MetricExporter) Aggregation(k sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(k)
}

// Export implements sdkmetric.Exporter. Only sums are reported.
func (e *MetricExporter) Export(_ context.Context, rm *metricdata.ResourceMetrics) error {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					e.l.Info().
						Str("metric", m.Name).
						Str("attributes", dp.Attributes.Encoded(attribute.DefaultEncoder())).
						Int64("value", dp.Value).
						Msg("metric")
				}
			case metricdata.Sum[float64]:
				for _, dp := range data.DataPoints {
					e.l.Info().
						Str("metric", m.Name).
						Str("attributes", dp.Attributes.Encoded(attribute.DefaultEncoder())).
						Float64("value", dp.Value).
						Msg("metric")
				}
			}
		}
	}

	return nil
}

// ForceFlush implements sdkmetric.Exporter.
func (e *MetricExporter) ForceFlush(context.Context) error {
	return nil
}

// Shutdown implements sdkmetric.Exporter.
func (e *MetricExporter) Shutdown(context.Context) error {
	return nil
}

func encode(kvs ...attribute.KeyValue) string {
	set := attribute.NewSet(kvs...)
	return set.Encoded(attribute.DefaultEncoder())
}
