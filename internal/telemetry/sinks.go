package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const meterName = "github.com/ciphera-net/website/internal/telemetry"

// LogSink writes each event as a structured log line.
type LogSink struct {
	Logger *zap.Logger
}

// Record implements Sink.
func (s LogSink) Record(_ context.Context, name string) {
	if s.Logger == nil {
		return
	}
	s.Logger.Info("telemetry event", zap.String("event", name))
}

// MetricSink counts events on an OpenTelemetry counter.
type MetricSink struct {
	counter metric.Int64Counter
}

// NewMetricSink registers the website.events counter on meter, or on the
// global meter provider when meter is nil.
func NewMetricSink(meter metric.Meter) (*MetricSink, error) {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(meterName)
	}
	counter, err := meter.Int64Counter("website.events",
		metric.WithDescription("Analytics events recorded by the website"),
	)
	if err != nil {
		return nil, err
	}
	return &MetricSink{counter: counter}, nil
}

// Record implements Sink.
func (s *MetricSink) Record(ctx context.Context, name string) {
	s.counter.Add(ctx, 1, metric.WithAttributes(attribute.String("event", name)))
}
