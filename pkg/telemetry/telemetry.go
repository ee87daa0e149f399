// Package telemetry sets up OpenTelemetry tracing and metrics for sessions.
// Both signals are exported as JSON to a writer, typically the rotating log
// file, so they never compete with the terminal UI for stdout.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// ScopeName is the instrumentation scope for everything rehearse records.
const ScopeName = "github.com/papercomputeco/rehearse"

const defaultMetricInterval = 10 * time.Second

// Config controls telemetry export.
type Config struct {
	// Writer receives exported spans and metrics. A nil Writer disables
	// telemetry.
	Writer io.Writer

	ServiceName    string
	ServiceVersion string

	// MetricInterval is how often metrics are exported. Defaults to 10s.
	MetricInterval time.Duration
}

// Provider hands out the tracer and meter for the process.
type Provider struct {
	Tracer trace.Tracer
	Meter  metric.Meter

	shutdown []func(context.Context) error
}

// Noop returns a Provider that records nothing.
func Noop() *Provider {
	return &Provider{
		Tracer: tracenoop.NewTracerProvider().Tracer(ScopeName),
		Meter:  metricnoop.NewMeterProvider().Meter(ScopeName),
	}
}

// Setup builds a Provider exporting to config.Writer, or a noop Provider when
// no writer is configured.
func Setup(ctx context.Context, config Config) (*Provider, error) {
	if config.Writer == nil {
		return Noop(), nil
	}
	if config.ServiceName == "" {
		config.ServiceName = "rehearse"
	}
	if config.MetricInterval <= 0 {
		config.MetricInterval = defaultMetricInterval
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(config.Writer))
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)

	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(config.Writer))
	if err != nil {
		return nil, errors.Join(
			fmt.Errorf("creating metric exporter: %w", err),
			tp.Shutdown(ctx),
		)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(config.MetricInterval)),
		),
		sdkmetric.WithResource(res),
	)

	return &Provider{
		Tracer:   tp.Tracer(ScopeName),
		Meter:    mp.Meter(ScopeName),
		shutdown: []func(context.Context) error{tp.Shutdown, mp.Shutdown},
	}, nil
}

// Shutdown flushes and stops the exporters.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range p.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
