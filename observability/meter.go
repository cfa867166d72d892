package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/convoy/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the metric instruments convoy records per run.
type Metrics struct {
	runTotal      metric.Int64Counter
	stageDuration metric.Float64Histogram
	retryTotal    metric.Int64Counter
	publishTotal  metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	runTotal, err := meter.Int64Counter("convoy.run.total",
		metric.WithDescription("Total runs by terminal outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating convoy.run.total counter: %w", err)
	}

	stageDuration, err := meter.Float64Histogram("convoy.stage.duration",
		metric.WithDescription("Duration of run stages in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating convoy.stage.duration histogram: %w", err)
	}

	retryTotal, err := meter.Int64Counter("convoy.retry.total",
		metric.WithDescription("Total retry attempts by operation"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating convoy.retry.total counter: %w", err)
	}

	publishTotal, err := meter.Int64Counter("convoy.publish.total",
		metric.WithDescription("Total bundle uploads by destination package"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating convoy.publish.total counter: %w", err)
	}

	return &Metrics{
		runTotal:      runTotal,
		stageDuration: stageDuration,
		retryTotal:    retryTotal,
		publishTotal:  publishTotal,
	}, nil
}

// RecordRun records a terminal run outcome.
func (m *Metrics) RecordRun(ctx context.Context, outcome string) {
	m.runTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordStage records a completed stage execution.
func (m *Metrics) RecordStage(ctx context.Context, stage, status string, duration time.Duration) {
	m.stageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	))
}

// RecordRetry records one retry attempt for a remote operation.
func (m *Metrics) RecordRetry(ctx context.Context, operation string) {
	m.retryTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordPublish records a bundle upload to a destination package.
func (m *Metrics) RecordPublish(ctx context.Context, pkg string, accepted bool) {
	m.publishTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("package", pkg),
		attribute.Bool("accepted", accepted),
	))
}
