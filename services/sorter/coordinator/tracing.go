// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package coordinator

import (
	"context"
	"sync"

	"github.com/AleutianAI/sortvis/services/sorter/sequence"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for sorting runs.
var (
	tracer = otel.Tracer("sortvis.coordinator")
	meter  = otel.Meter("sortvis.coordinator")
)

// Metrics describing the work done per run.
var (
	runComparisons metric.Int64Histogram
	runMoves       metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		runComparisons, err = meter.Int64Histogram(
			"sortvis_run_comparisons",
			metric.WithDescription("Comparisons counted per sorting run"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runMoves, err = meter.Int64Histogram(
			"sortvis_run_moves",
			metric.WithDescription("Swaps and writes counted per sorting run"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startRunSpan creates the span covering one run.
func startRunSpan(ctx context.Context, r *run, length int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Coordinator.Run",
		trace.WithAttributes(
			attribute.String("sort.run_id", r.id),
			attribute.String("sort.algorithm", r.alg.Name),
			attribute.Int("sort.length", length),
		),
	)
}

// endRunSpan records the result of a run on its span and in the run metrics.
// The caller still owns span.End.
func endRunSpan(span trace.Span, algorithm string, outcome Outcome, final sequence.StepSnapshot, err error) {
	span.SetAttributes(
		attribute.String("sort.outcome", string(outcome)),
		attribute.Int64("sort.comparisons", final.Comparisons),
		attribute.Int64("sort.moves", final.Moves),
		attribute.Int64("sort.steps", int64(final.Step)),
	)
	if outcome == OutcomeFailed && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if initMetrics() != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("algorithm", algorithm),
		attribute.String("outcome", string(outcome)),
	)
	// The run context is already cancelled for stopped runs; the recording
	// context only carries attributes.
	recCtx := trace.ContextWithSpan(context.Background(), span)
	runComparisons.Record(recCtx, final.Comparisons, attrs)
	runMoves.Record(recCtx, final.Moves, attrs)
}
