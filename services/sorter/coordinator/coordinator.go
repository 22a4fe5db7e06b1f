// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package coordinator owns the lifecycle of sorting runs.
//
// # Overview
//
// The Coordinator is a small state machine around one shared sequence:
//
//	Idle ──Start──▶ Running ◀──TogglePause──▶ Paused
//	                  │  │                       │
//	                  │  └──RequestStop/Start────┴──▶ Stopping
//	                  │                                 │
//	                  └──completes──▶ Done ◀──exits─────┘
//
// Start spawns exactly one worker goroutine that runs the chosen algorithm
// through an algorithms.Stepper. Stop requests cancel the run context with a
// StopReason as its cause; the worker observes the cancellation at its next
// step or recursive call and exits without rolling anything back.
//
// # Start While Active
//
// Start while a run is Running or Paused only requests a stop and returns
// ErrRunActive. It does not queue the new algorithm: the caller starts again
// once the state reached Done.
//
// # Faults
//
// A panic inside an algorithm (an out-of-range index, for instance) is
// recovered at the worker boundary. The run ends in Done with an "Error: ..."
// status; the coordinator keeps working and Reset restores a fresh sequence.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. Control calls never block
// on the worker except Reset and Close, which wait for the worker to exit
// (bounded by one step delay, because the delay itself is interruptible).
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"runtime/debug"
	"sync"
	"time"

	"github.com/AleutianAI/sortvis/services/sorter/algorithms"
	"github.com/AleutianAI/sortvis/services/sorter/pacing"
	"github.com/AleutianAI/sortvis/services/sorter/sequence"
	"github.com/google/uuid"
)

// FaultError wraps a panic recovered from an algorithm.
type FaultError struct {
	// Value is the recovered panic value.
	Value any

	// Stack is the goroutine stack at the time of the panic.
	Stack []byte
}

// Error implements error.
func (e *FaultError) Error() string {
	return fmt.Sprintf("algorithm fault: %v", e.Value)
}

// Unwrap exposes the panic value when it is an error.
func (e *FaultError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// run is one execution of an algorithm.
type run struct {
	id      string
	alg     algorithms.Algorithm
	ctx     context.Context
	cancel  context.CancelCauseFunc
	done    chan struct{}
	started time.Time

	// stopRequested is set under Coordinator.mu by the first stop request.
	stopRequested time.Time
}

// Coordinator runs sorting algorithms one at a time against a shared sequence.
//
// Thread Safety: Safe for concurrent use.
type Coordinator struct {
	cfg    Config
	logger *slog.Logger

	store *sequence.Store
	pacer *pacing.Controller
	feed  *broadcaster

	mu      sync.Mutex
	rng     *rand.Rand
	state   RunState
	current *run
	last    *run
	closed  bool
}

// New creates a Coordinator and its sequence.
//
// # Description
//
// Builds the sequence from cfg.Initial when given, otherwise from cfg.Size
// random values in [0, cfg.MaxValue). The coordinator starts Idle.
//
// # Inputs
//
//   - cfg: Configuration. Zero values use defaults.
//   - logger: Logger for run events. If nil, uses slog.Default().
//
// # Outputs
//
//   - *Coordinator: Ready coordinator. Never nil on success.
//   - error: Non-nil if the configuration or the initial values are invalid.
//
// # Example
//
//	coord, err := coordinator.New(coordinator.DefaultConfig(), logger)
//	if err != nil {
//	    return err
//	}
//	defer coord.Close()
//	_ = coord.Start("quick")
func New(cfg Config, logger *slog.Logger) (*Coordinator, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	var store *sequence.Store
	if cfg.Initial != nil {
		s, err := sequence.New(cfg.Initial)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		store = s
	} else {
		store = sequence.NewRandom(cfg.Size, cfg.MaxValue, rng)
	}
	store.SetStatus(StatusIdle)

	return &Coordinator{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "sort_coordinator")),
		store:  store,
		pacer:  pacing.New(cfg.Pacing),
		feed:   newBroadcaster(),
		rng:    rng,
		state:  StateIdle,
	}, nil
}

// =============================================================================
// Control
// =============================================================================

// Start launches the named algorithm.
//
// # Description
//
// From Idle or Done: resets the metrics (regenerating the values when
// ShuffleOnStart is set), moves to Running and spawns the worker.
// From Running or Paused: requests a stop and returns ErrRunActive.
// From Stopping: returns ErrRunActive.
//
// # Outputs
//
//   - error: ErrUnknownAlgorithm, ErrRunActive, ErrClosed, or nil when started.
func (c *Coordinator) Start(name string) error {
	alg, err := algorithms.Resolve(name)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.state.IsActive() {
		c.stopLocked(StopRestart)
		return ErrRunActive
	}

	if c.cfg.ShuffleOnStart {
		c.store.Randomize(c.cfg.MaxValue, c.rng)
	} else {
		c.store.ResetMetrics()
	}
	c.pacer.SetPaused(false)

	ctx, cancel := context.WithCancelCause(context.Background())
	r := &run{
		id:      uuid.NewString(),
		alg:     alg,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		started: time.Now(),
	}
	c.current = r
	c.last = r
	c.state = StateRunning
	c.store.SetStatus("Sorting: " + alg.Label)

	n := c.store.Len()
	c.logger.Info("sort started",
		slog.String("run_id", r.id),
		slog.String("algorithm", alg.Name),
		slog.Int("length", n),
	)
	recordRunStarted(alg.Name)

	go c.work(r, n)
	return nil
}

// TogglePause flips the pause flag of the active run.
//
// # Outputs
//
//   - bool: True if the run is now paused.
//   - error: ErrNotRunning unless the state is Running or Paused.
func (c *Coordinator) TogglePause() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning && c.state != StatePaused {
		return false, ErrNotRunning
	}

	paused := c.pacer.TogglePause()
	if paused {
		c.state = StatePaused
		c.store.SetStatus("Paused: " + c.current.alg.Label)
	} else {
		c.state = StateRunning
		c.store.SetStatus("Sorting: " + c.current.alg.Label)
	}
	c.logger.Debug("pause toggled", slog.String("run_id", c.current.id), slog.Bool("paused", paused))
	return paused, nil
}

// RequestStop asks the active run to stop. It does not wait.
func (c *Coordinator) RequestStop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked(StopUser)
}

// stopLocked cancels the active run with reason. Caller holds c.mu.
func (c *Coordinator) stopLocked(reason StopReason) {
	r := c.current
	if r == nil {
		return
	}
	if c.state == StateRunning || c.state == StatePaused {
		c.state = StateStopping
		c.store.SetStatus("Stopping: " + r.alg.Label)
		r.stopRequested = time.Now()
		recordStopRequest(reason)
		c.logger.Info("stop requested",
			slog.String("run_id", r.id),
			slog.String("reason", reason.String()),
		)
	}
	r.cancel(reason)
}

// Reset stops any active run, regenerates the values and returns to Idle.
//
// # Description
//
// Waits for the worker to exit before touching the sequence, so the old run
// can never write into the new values. Calling Reset repeatedly, or before
// any run, is safe.
func (c *Coordinator) Reset() {
	for {
		c.mu.Lock()
		r := c.current
		if r == nil {
			c.store.Randomize(c.cfg.MaxValue, c.rng)
			c.store.SetStatus(StatusIdle)
			c.pacer.SetPaused(false)
			c.state = StateIdle
			c.last = nil
			c.feed.publish(c.store.Latest())
			n := c.store.Len()
			c.mu.Unlock()

			c.logger.Debug("sequence reset", slog.Int("length", n))
			return
		}
		c.stopLocked(StopReset)
		c.mu.Unlock()

		<-r.done
	}
}

// SetFastMode selects fast or slow pacing. It applies from the next step.
func (c *Coordinator) SetFastMode(fast bool) {
	c.pacer.SetFastMode(fast)
	c.logger.Debug("speed changed", slog.Bool("fast", fast))
}

// SetDelays replaces the fast and slow step delays at runtime.
func (c *Coordinator) SetDelays(fast, slow time.Duration) {
	c.pacer.SetDelays(fast, slow)
	c.logger.Debug("delays changed", slog.Duration("fast", fast), slog.Duration("slow", slow))
}

// =============================================================================
// Observation
// =============================================================================

// Snapshot returns a consistent view of the sequence and the run state.
//
// The state and the status label change together under c.mu, and the
// sequence snapshot is read under the store lock, so an observer never sees a
// status from one transition paired with a state from another.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Snapshot: c.store.Snapshot(),
		State:    c.state,
		FastMode: c.pacer.FastMode(),
		Paused:   c.pacer.Paused(),
	}
	if c.last != nil {
		snap.Algorithm = c.last.alg.Name
		snap.Label = c.last.alg.Label
		snap.Complexity = c.last.alg.Complexity
		snap.RunID = c.last.id
	}
	return snap
}

// State returns the current RunState.
func (c *Coordinator) State() RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe returns a feed of step snapshots and a function to cancel it.
//
// The feed coalesces: a slow reader skips intermediate steps but always
// receives them in production order and eventually sees the latest one.
func (c *Coordinator) Subscribe() (<-chan sequence.StepSnapshot, func()) {
	return c.feed.subscribe()
}

// Wait blocks until the active run (if any) has exited or ctx is done.
func (c *Coordinator) Wait(ctx context.Context) error {
	c.mu.Lock()
	r := c.current
	c.mu.Unlock()
	if r == nil {
		return nil
	}

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops any active run, waits for it and closes all subscriptions.
// It is idempotent.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.stopLocked(StopShutdown)
	r := c.current
	c.mu.Unlock()

	if r != nil {
		<-r.done
	}
	c.feed.close()
	return nil
}

// =============================================================================
// Worker
// =============================================================================

// work executes r on the calling goroutine and publishes the final state.
func (c *Coordinator) work(r *run, n int) {
	defer close(r.done)

	ctx, span := startRunSpan(r.ctx, r, n)
	defer span.End()

	steps := stepCounter(r.alg.Name)
	publish := func(snap sequence.StepSnapshot) {
		steps.Inc()
		c.feed.publish(snap)
	}

	err := c.execute(ctx, r, publish)
	outcome := classify(r.ctx, err)

	c.mu.Lock()
	c.store.ClearHighlight()
	switch outcome {
	case OutcomeCompleted:
		c.store.SetStatus(StatusDone)
	case OutcomeStopped:
		c.store.SetStatus(StatusStopped)
	default:
		c.store.SetStatus("Error: " + err.Error())
	}
	if c.current == r {
		c.current = nil
		c.state = StateDone
	}
	c.pacer.SetPaused(false)
	stopRequested := r.stopRequested
	// Read and publish before releasing c.mu: once the state is Done a new
	// Start may reset the store, and its steps must follow this snapshot.
	final := c.store.Latest()
	c.feed.publish(final)
	c.mu.Unlock()

	elapsed := time.Since(r.started)
	recordRunFinished(r.alg.Name, outcome, elapsed)
	if !stopRequested.IsZero() {
		recordStopLatency(time.Since(stopRequested))
	}
	endRunSpan(span, r.alg.Name, outcome, final, err)

	attrs := []any{
		slog.String("run_id", r.id),
		slog.String("algorithm", r.alg.Name),
		slog.String("outcome", string(outcome)),
		slog.Int64("comparisons", final.Comparisons),
		slog.Int64("moves", final.Moves),
		slog.Duration("elapsed", elapsed),
	}
	switch outcome {
	case OutcomeFailed:
		var fault *FaultError
		if errors.As(err, &fault) {
			attrs = append(attrs, slog.String("stack", string(fault.Stack)))
		}
		c.logger.Error("sort failed", append(attrs, slog.String("error", err.Error()))...)
	case OutcomeStopped:
		if reason, ok := context.Cause(r.ctx).(StopReason); ok {
			attrs = append(attrs, slog.String("reason", reason.String()))
		}
		c.logger.Info("sort stopped", attrs...)
	default:
		c.logger.Info("sort finished", attrs...)
	}
}

// execute runs the algorithm and converts a panic into a FaultError.
func (c *Coordinator) execute(ctx context.Context, r *run, publish algorithms.PublishFunc) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			recordFault(r.alg.Name)
			err = &FaultError{Value: rec, Stack: debug.Stack()}
		}
	}()

	st := algorithms.NewStepper(ctx, c.store, c.pacer, publish)
	return r.alg.Run(st)
}

// classify maps the result of a run to its outcome.
func classify(runCtx context.Context, err error) Outcome {
	switch {
	case err == nil:
		return OutcomeCompleted
	case runCtx.Err() != nil && errors.Is(err, context.Canceled):
		return OutcomeStopped
	default:
		return OutcomeFailed
	}
}
