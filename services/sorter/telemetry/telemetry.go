// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry bootstraps OpenTelemetry for sortvis.
//
// Init installs the global TracerProvider and MeterProvider so that the
// package-level tracers and meters in services/sorter/coordinator export
// somewhere. NewMetricsServer exposes the Prometheus registry, which holds both
// the promauto coordinator metrics and, with the "prometheus" metric exporter,
// the OpenTelemetry histograms.
//
// Stdout exporters write to Config.Output rather than os.Stdout, because the
// TUI owns the terminal.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

var (
	// ErrNilContext is returned by Init when ctx is nil.
	ErrNilContext = errors.New("telemetry: nil context")

	// ErrUnknownExporter is returned for an exporter name Init does not know.
	ErrUnknownExporter = errors.New("telemetry: unknown exporter")
)

// Exporter names accepted in Config.
const (
	ExporterNone       = "none"
	ExporterStdout     = "stdout"
	ExporterOTLP       = "otlp"
	ExporterPrometheus = "prometheus"
)

// Config selects where run spans and run metrics go.
type Config struct {
	// ServiceName and ServiceVersion label every span and metric.
	ServiceName    string
	ServiceVersion string

	// TraceExporter is "otlp", "stdout", or "none". Empty means "none".
	TraceExporter string

	// MetricExporter is "prometheus", "stdout", or "none". Empty means "none".
	MetricExporter string

	// OTLPEndpoint is the gRPC collector address used by the "otlp" exporter.
	OTLPEndpoint string

	// OTLPInsecure disables TLS towards the collector.
	OTLPInsecure bool

	// Output receives stdout exporter output. If nil, os.Stderr is used.
	Output io.Writer
}

// DefaultConfig returns tracing off and metrics on the Prometheus registry.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "sortvis",
		ServiceVersion: "0.1.0",
		TraceExporter:  ExporterNone,
		MetricExporter: ExporterPrometheus,
		OTLPEndpoint:   "localhost:4317",
		OTLPInsecure:   true,
	}
}

func enabled(exporter string) bool {
	return exporter != "" && exporter != ExporterNone
}

// Init installs the global trace and metric providers.
//
// # Description
//
// Exporters left at "none" keep the global no-op provider, so the coordinator
// spans and histograms cost nothing. The returned shutdown flushes every
// provider Init installed and is safe to call when none was installed.
//
// # Outputs
//
//   - shutdown: Flushes and stops the providers. Must be called on exit.
//   - error: ErrNilContext, ErrUnknownExporter, or an exporter failure.
//
// # Example
//
//	shutdown, err := telemetry.Init(ctx, cfg)
//	if err != nil {
//	    return fmt.Errorf("init telemetry: %w", err)
//	}
//	defer shutdown(context.Background())
//
// Thread Safety: Call once at startup.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	var installed []interface{ Shutdown(context.Context) error }
	shutdown := func(ctx context.Context) error {
		var errs []error
		for _, p := range installed {
			errs = append(errs, p.Shutdown(ctx))
		}
		return errors.Join(errs...)
	}

	if enabled(cfg.TraceExporter) {
		exporter, err := newSpanExporter(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("init tracer: %w", err)
		}
		tp := trace.NewTracerProvider(
			trace.WithBatcher(exporter),
			trace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		installed = append(installed, tp)
	}

	if enabled(cfg.MetricExporter) {
		reader, err := newMetricReader(cfg)
		if err != nil {
			_ = shutdown(ctx)
			return nil, fmt.Errorf("init meter: %w", err)
		}
		mp := metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(reader),
		)
		otel.SetMeterProvider(mp)
		installed = append(installed, mp)
	}

	return shutdown, nil
}

// newSpanExporter builds the exporter named by cfg.TraceExporter.
func newSpanExporter(ctx context.Context, cfg Config) (trace.SpanExporter, error) {
	switch cfg.TraceExporter {
	case ExporterOTLP:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	case ExporterStdout:
		return stdouttrace.New(stdouttrace.WithWriter(cfg.Output))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.TraceExporter)
	}
}

// newMetricReader builds the reader named by cfg.MetricExporter. The
// Prometheus reader registers on the default registry, next to the promauto
// coordinator metrics.
func newMetricReader(cfg Config) (metric.Reader, error) {
	switch cfg.MetricExporter {
	case ExporterPrometheus:
		return promexporter.New()
	case ExporterStdout:
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(cfg.Output))
		if err != nil {
			return nil, err
		}
		return metric.NewPeriodicReader(exporter), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.MetricExporter)
	}
}

// MetricsHandler returns the handler for the default Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// NewMetricsServer returns an HTTP server exposing /metrics on addr.
// The caller runs ListenAndServe and Shutdown.
func NewMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
