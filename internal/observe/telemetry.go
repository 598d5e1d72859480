// Package observe wires optional OpenTelemetry development telemetry.
//
// Prometheus /metrics is the primary operational surface; this package adds
// stdout trace and metric export for local debugging when telemetry.enabled
// is set. Spans are emitted by the service and store layers through the
// global tracer provider, so enabling this requires no code changes there.
package observe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ShutdownFunc flushes and stops the telemetry providers.
type ShutdownFunc func(context.Context) error

// Setup installs global stdout trace and metric providers.
// When enabled is false it installs nothing and returns a no-op shutdown.
func Setup(ctx context.Context, enabled bool, version string) (ShutdownFunc, error) {
	if !enabled {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName("checkout-gate"),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry resource: %w", err)
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)

	metricExporter, err := stdoutmetric.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(30*time.Second))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	if err := registerUptimeGauge(meterProvider); err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		return errors.Join(
			tracerProvider.Shutdown(ctx),
			meterProvider.Shutdown(ctx),
		)
	}, nil
}

// registerUptimeGauge records process uptime so the stdout metric stream is
// never empty, which makes "is telemetry on" obvious at a glance.
func registerUptimeGauge(provider *sdkmetric.MeterProvider) error {
	start := time.Now()
	meter := provider.Meter("checkoutgate/observe")

	_, err := meter.Float64ObservableGauge("process.uptime",
		metric.WithUnit("s"),
		metric.WithDescription("Seconds since the server process started"),
		metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
			o.Observe(time.Since(start).Seconds())
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to register uptime gauge: %w", err)
	}
	return nil
}
