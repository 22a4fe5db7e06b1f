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
	"errors"
	"fmt"
	"time"

	"github.com/AleutianAI/sortvis/services/sorter/algorithms"
	"github.com/AleutianAI/sortvis/services/sorter/pacing"
	"github.com/AleutianAI/sortvis/services/sorter/sequence"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrUnknownAlgorithm is returned by Start for a name that is not registered.
	ErrUnknownAlgorithm = algorithms.ErrUnknownAlgorithm

	// ErrRunActive is returned by Start while a run is active. Start has
	// requested a stop; call Start again once the run reached Done.
	ErrRunActive = errors.New("sort in progress; stop requested")

	// ErrNotRunning is returned by TogglePause when no run is active.
	ErrNotRunning = errors.New("no sort is running")

	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("coordinator is closed")

	// ErrInvalidConfig is returned when configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// -----------------------------------------------------------------------------
// Enums
// -----------------------------------------------------------------------------

// RunState is the lifecycle state of the coordinator.
type RunState int

const (
	// StateIdle means no run has started since the last reset.
	StateIdle RunState = iota

	// StateRunning means the worker is executing an algorithm.
	StateRunning

	// StatePaused means the worker is parked in the pacer.
	StatePaused

	// StateStopping means a stop was requested and the worker has not exited yet.
	StateStopping

	// StateDone means the last run finished, was stopped, or failed.
	StateDone
)

// String returns the string representation of the state.
func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// IsActive returns true while a worker exists.
func (s RunState) IsActive() bool {
	return s == StateRunning || s == StatePaused || s == StateStopping
}

// StopReason says why a run was stopped. It is attached to the run context as
// its cancellation cause.
type StopReason int

const (
	// StopUser is an explicit RequestStop.
	StopUser StopReason = iota

	// StopRestart is a Start request that arrived while a run was active.
	StopRestart

	// StopReset is a Reset while a run was active.
	StopReset

	// StopShutdown is Close.
	StopShutdown
)

// String returns the string representation of the reason.
func (r StopReason) String() string {
	switch r {
	case StopUser:
		return "user"
	case StopRestart:
		return "restart"
	case StopReset:
		return "reset"
	case StopShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Error makes StopReason usable as a context cancellation cause.
func (r StopReason) Error() string {
	return "sort stopped: " + r.String()
}

// Outcome is how a run ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeStopped   Outcome = "stopped"
	OutcomeFailed    Outcome = "failed"
)

// Status labels shown to observers.
const (
	StatusIdle    = "Idle"
	StatusDone    = "Done"
	StatusStopped = "Stopped"
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config configures a Coordinator.
type Config struct {
	// Size is the sequence length created at startup and on Reset.
	// Ignored when Initial is set. Default: 150.
	Size int

	// MaxValue bounds generated values to [0, MaxValue). At most
	// sequence.ValueLimit. Default: 500.
	MaxValue int

	// Seed seeds value generation. Zero means time-based.
	Seed int64

	// Initial, when non-nil, is loaded instead of random values at startup.
	Initial []int

	// ShuffleOnStart regenerates the values before every Start.
	ShuffleOnStart bool

	// Pacing configures step delays and the initial speed.
	Pacing pacing.Config
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		Size:           150,
		MaxValue:       500,
		ShuffleOnStart: true,
		Pacing:         pacing.DefaultConfig(),
	}
}

// ApplyDefaults fills in zero values.
func (c *Config) ApplyDefaults() {
	if c.Size == 0 && c.Initial == nil {
		c.Size = 150
	}
	if c.MaxValue == 0 {
		c.MaxValue = 500
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Size < 0 {
		return errors.New("Size must be >= 0")
	}
	if c.MaxValue < 1 || c.MaxValue > sequence.ValueLimit {
		return fmt.Errorf("MaxValue must be in [1, %d]", sequence.ValueLimit)
	}
	if c.Pacing.FastDelay < 0 || c.Pacing.SlowDelay < 0 {
		return errors.New("pacing delays must be >= 0")
	}
	return nil
}

// -----------------------------------------------------------------------------
// Observer Contract
// -----------------------------------------------------------------------------

// Snapshot is the observer view of the coordinator.
type Snapshot struct {
	sequence.Snapshot

	// State is the current RunState.
	State RunState

	// Algorithm and Label identify the current or last run ("" before any run).
	Algorithm string
	Label     string

	// Complexity is the time complexity of the current or last algorithm.
	Complexity string

	// FastMode reports the pacing speed.
	FastMode bool

	// Paused reports the pause flag.
	Paused bool

	// RunID identifies the current or last run.
	RunID string
}

// Controller is the surface an observer uses to drive sorting runs.
//
// *Coordinator implements it. Observers depend on this interface only.
type Controller interface {
	// Start launches the named algorithm, or requests a stop if a run is active.
	Start(name string) error

	// TogglePause flips pause while a run is active and returns the new value.
	TogglePause() (bool, error)

	// RequestStop asks the current run to stop at its next checkpoint.
	RequestStop()

	// Reset stops any run, regenerates the values and returns to Idle.
	Reset()

	// SetFastMode selects fast or slow pacing.
	SetFastMode(fast bool)

	// Snapshot returns a consistent view of the sequence and the run state.
	Snapshot() Snapshot
}

var _ Controller = (*Coordinator)(nil)
