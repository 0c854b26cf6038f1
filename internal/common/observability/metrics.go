package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// Observability owns the OpenTelemetry meter used for booking-flow
// instruments. Its exporter feeds the default Prometheus registry, so the
// instruments appear next to the promauto metrics on /metrics.
type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	submitCounter otelmetric.Int64Counter
	submitLatency otelmetric.Float64Histogram
	faultCounter  otelmetric.Int64Counter
}

func New(serviceName string, log *zap.Logger) *Observability {
	if log == nil {
		log = zap.NewNop()
	}

	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("failed to create prometheus exporter", zap.Error(err))
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	submitCounter, _ := meter.Int64Counter(
		"booking.submissions",
		otelmetric.WithDescription("Number of booking submissions"),
	)

	submitLatency, _ := meter.Float64Histogram(
		"booking.submission.duration",
		otelmetric.WithDescription("Booking submission duration"),
		otelmetric.WithUnit("ms"),
	)

	faultCounter, _ := meter.Int64Counter(
		"booking.faults",
		otelmetric.WithDescription("Number of faults captured by the recovery boundary"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		submitCounter: submitCounter,
		submitLatency: submitLatency,
		faultCounter:  faultCounter,
	}
}

// RecordSubmission is safe to call on a nil or degraded Observability.
func (o *Observability) RecordSubmission(ctx context.Context, duration time.Duration, status string) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("status", status))
	if o.submitCounter != nil {
		o.submitCounter.Add(ctx, 1, attrs)
	}
	if o.submitLatency != nil {
		o.submitLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) RecordFault(ctx context.Context, code string) {
	if o == nil || o.faultCounter == nil {
		return
	}
	o.faultCounter.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("code", code)))
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}
