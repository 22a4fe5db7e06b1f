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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Sorting Runs
// =============================================================================

var (
	// runsStarted counts runs launched by Start.
	// Labels: algorithm
	runsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sortvis",
		Subsystem: "coordinator",
		Name:      "runs_started_total",
		Help:      "Total sorting runs started",
	}, []string{"algorithm"})

	// runsFinished counts runs by how they ended.
	// Labels: algorithm, outcome (completed, stopped, failed)
	runsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sortvis",
		Subsystem: "coordinator",
		Name:      "runs_finished_total",
		Help:      "Total sorting runs finished by outcome",
	}, []string{"algorithm", "outcome"})

	// runDuration measures wall time from Start to worker exit.
	// Labels: algorithm, outcome
	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sortvis",
		Subsystem: "coordinator",
		Name:      "run_duration_seconds",
		Help:      "Sorting run duration in seconds",
		Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"algorithm", "outcome"})

	// stepsTotal counts published steps.
	// Labels: algorithm
	stepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sortvis",
		Subsystem: "coordinator",
		Name:      "steps_total",
		Help:      "Total visualization steps published",
	}, []string{"algorithm"})

	// stopRequests counts stop requests that hit an active run.
	// Labels: reason (user, restart, reset, shutdown)
	stopRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sortvis",
		Subsystem: "coordinator",
		Name:      "stop_requests_total",
		Help:      "Total stop requests by reason",
	}, []string{"reason"})

	// stopLatency measures time from the first stop request to worker exit.
	stopLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sortvis",
		Subsystem: "coordinator",
		Name:      "stop_latency_seconds",
		Help:      "Time from stop request to worker exit in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	// faultsTotal counts panics recovered from algorithms.
	// Labels: algorithm
	faultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sortvis",
		Subsystem: "coordinator",
		Name:      "faults_total",
		Help:      "Total algorithm panics recovered",
	}, []string{"algorithm"})

	// activeRuns is 1 while a worker exists.
	activeRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sortvis",
		Subsystem: "coordinator",
		Name:      "active_runs",
		Help:      "Number of sorting workers currently alive",
	})
)

// =============================================================================
// Metrics Recording Functions
// =============================================================================

func recordRunStarted(algorithm string) {
	runsStarted.WithLabelValues(algorithm).Inc()
	activeRuns.Inc()
}

func recordRunFinished(algorithm string, outcome Outcome, elapsed time.Duration) {
	runsFinished.WithLabelValues(algorithm, string(outcome)).Inc()
	runDuration.WithLabelValues(algorithm, string(outcome)).Observe(elapsed.Seconds())
	activeRuns.Dec()
}

// stepCounter resolves the step counter once per run so the hot path is a
// single atomic add.
func stepCounter(algorithm string) prometheus.Counter {
	return stepsTotal.WithLabelValues(algorithm)
}

func recordStopRequest(reason StopReason) {
	stopRequests.WithLabelValues(reason.String()).Inc()
}

func recordStopLatency(d time.Duration) {
	stopLatency.Observe(d.Seconds())
}

func recordFault(algorithm string) {
	faultsTotal.WithLabelValues(algorithm).Inc()
}
