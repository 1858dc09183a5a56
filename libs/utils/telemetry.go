package utils

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	sdk "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.11.0"
)

const defaultExportInterval = 10 * time.Second

// MeterProviderConfig describes the exporting node to the metrics collector.
type MeterProviderConfig struct {
	// Network the node runs on, reported as the service namespace.
	Network string
	// Version of the node binary.
	Version string
	// InstanceID uniquely identifies the node, usually its peer ID.
	InstanceID string
	// Interval between two exports. Defaults to 10s.
	Interval time.Duration
	// OTLPOptions configure the endpoint, headers and TLS of the exporter.
	OTLPOptions []otlpmetrichttp.Option
}

// NewMeterProvider creates a MeterProvider that periodically pushes
// gzip compressed metrics to an OTLP HTTP collector.
func NewMeterProvider(ctx context.Context, cfg MeterProviderConfig) (*sdk.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithCompression(otlpmetrichttp.GzipCompression)}
	opts = append(opts, cfg.OTLPOptions...)

	exp, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP metric exporter: %w", err)
	}

	interval := cfg.Interval
	if interval == 0 {
		interval = defaultExportInterval
	}

	provider := sdk.NewMeterProvider(
		sdk.WithReader(
			sdk.NewPeriodicReader(exp,
				sdk.WithTimeout(interval),
				sdk.WithInterval(interval))),
		sdk.WithResource(
			resource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceNamespaceKey.String(cfg.Network),
				semconv.ServiceNameKey.String("celestia-light"),
				semconv.ServiceVersionKey.String(cfg.Version),
				semconv.ServiceInstanceIDKey.String(cfg.InstanceID),
			)))

	return provider, nil
}
