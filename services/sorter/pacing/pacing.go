// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pacing throttles a sorting run to a human-visible speed.
//
// # Description
//
// The Controller converts the fast/slow speed flag into a per-step delay and
// holds the pause flag. Await is the only place in the system where a sorting
// worker blocks: it parks while paused and then sleeps the step delay. Both
// waits return as soon as the run context is cancelled, so a stop request is
// never held up by a pause.
//
// # Thread Safety
//
// All methods are safe for concurrent use. The worker calls Await; observers
// toggle pause and speed from other goroutines.
package pacing

import (
	"context"
	"sync"
	"time"
)

// Default delays, matching the original animation speeds.
const (
	DefaultFastDelay = 5 * time.Millisecond
	DefaultSlowDelay = 30 * time.Millisecond
)

// Config configures a Controller.
type Config struct {
	// FastDelay is the step delay in fast mode. Zero disables the delay.
	FastDelay time.Duration

	// SlowDelay is the step delay in slow mode. Zero disables the delay.
	SlowDelay time.Duration

	// FastMode selects the initial speed.
	FastMode bool
}

// DefaultConfig returns fast mode with the default delays.
func DefaultConfig() Config {
	return Config{
		FastDelay: DefaultFastDelay,
		SlowDelay: DefaultSlowDelay,
		FastMode:  true,
	}
}

// Controller paces a sorting worker.
//
// Thread Safety: Safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	fastDelay time.Duration
	slowDelay time.Duration
	fastMode  bool

	paused bool
	// resume is closed when the controller leaves the paused state.
	resume chan struct{}
}

// New creates a Controller. Negative delays are treated as zero.
func New(cfg Config) *Controller {
	c := &Controller{
		fastMode: cfg.FastMode,
		resume:   make(chan struct{}),
	}
	c.SetDelays(cfg.FastDelay, cfg.SlowDelay)
	close(c.resume)
	return c
}

// StepDelay returns the delay used for the given speed.
func (c *Controller) StepDelay(fast bool) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delayLocked(fast)
}

// Delay returns the delay for the current speed.
func (c *Controller) Delay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delayLocked(c.fastMode)
}

func (c *Controller) delayLocked(fast bool) time.Duration {
	if fast {
		return c.fastDelay
	}
	return c.slowDelay
}

// SetDelays replaces both delays. It takes effect at the next step.
func (c *Controller) SetDelays(fast, slow time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fastDelay = max(fast, 0)
	c.slowDelay = max(slow, 0)
}

// SetFastMode selects fast or slow speed.
func (c *Controller) SetFastMode(fast bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fastMode = fast
}

// FastMode reports the current speed.
func (c *Controller) FastMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fastMode
}

// Paused reports whether the controller is paused.
func (c *Controller) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// SetPaused pauses or resumes. Resuming wakes a worker parked in Await.
func (c *Controller) SetPaused(paused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setPausedLocked(paused)
}

// TogglePause flips the pause flag and returns the new value.
func (c *Controller) TogglePause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setPausedLocked(!c.paused)
	return c.paused
}

func (c *Controller) setPausedLocked(paused bool) {
	if paused == c.paused {
		return
	}
	c.paused = paused
	if paused {
		c.resume = make(chan struct{})
	} else {
		close(c.resume)
	}
}

// Await blocks the calling worker between two steps.
//
// # Description
//
// While paused, Await parks until resumed. It then waits the current step
// delay. Cancelling ctx ends either wait immediately.
//
// # Inputs
//
//   - ctx: The run context. Its cancellation is the stop signal.
//
// # Outputs
//
//   - error: ctx.Err() if the run was stopped, nil otherwise.
func (c *Controller) Await(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	resume := c.resume
	c.mu.Unlock()

	select {
	case <-resume:
	case <-ctx.Done():
		return ctx.Err()
	}

	// Speed may have changed while paused.
	delay := c.Delay()
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
