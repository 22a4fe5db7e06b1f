// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package algorithms

import (
	"context"

	"github.com/AleutianAI/sortvis/services/sorter/sequence"
)

// Pacer suspends the worker between steps.
//
// *pacing.Controller is the production implementation.
type Pacer interface {
	// Await blocks until the next step may run, or returns ctx.Err() once the
	// run has been stopped.
	Await(ctx context.Context) error
}

// PublishFunc receives every StepSnapshot in the order it was produced.
type PublishFunc func(sequence.StepSnapshot)

// Stepper drives one sorting run against a Store.
//
// # Description
//
// Each step primitive performs one observable mutation on the store, publishes
// the snapshot that mutation produced, waits on the pacer and returns the stop
// error if the run has been cancelled. Algorithms return that error unchanged,
// leaving the sequence in whatever partial state it reached.
//
// # Thread Safety
//
// A Stepper belongs to the single worker goroutine of its run.
type Stepper struct {
	ctx     context.Context
	store   *sequence.Store
	pacer   Pacer
	publish PublishFunc
}

// NewStepper creates a Stepper for one run.
//
// # Inputs
//
//   - ctx: Run context. Cancelling it is the stop signal.
//   - store: The live sequence.
//   - pacer: Step pacing. Nil means no delay.
//   - publish: Snapshot sink. May be nil.
func NewStepper(ctx context.Context, store *sequence.Store, pacer Pacer, publish PublishFunc) *Stepper {
	return &Stepper{ctx: ctx, store: store, pacer: pacer, publish: publish}
}

// Len returns the sequence length.
func (s *Stepper) Len() int { return s.store.Len() }

// Get reads item i. Reads are not steps.
func (s *Stepper) Get(i int) sequence.Item { return s.store.Get(i) }

// Compare compares items i and j as one step.
func (s *Stepper) Compare(i, j int) (int, error) {
	c, snap := s.store.Compare(i, j)
	return c, s.after(snap)
}

// CompareValue compares item i against a held value as one step.
func (s *Stepper) CompareValue(i, v int) (int, error) {
	c, snap := s.store.CompareValue(i, v)
	return c, s.after(snap)
}

// Tally counts the classification of item i as one step.
func (s *Stepper) Tally(i int) error {
	return s.after(s.store.Tally(i))
}

// Touch highlights item i as one step.
func (s *Stepper) Touch(i int) error {
	return s.after(s.store.Touch(i))
}

// Swap exchanges items i and j as one step.
func (s *Stepper) Swap(i, j int) error {
	return s.after(s.store.Swap(i, j))
}

// Set writes it at index i as one step.
func (s *Stepper) Set(i int, it sequence.Item) error {
	return s.after(s.store.Set(i, it))
}

// Checkpoint reports the stop signal without taking a step.
func (s *Stepper) Checkpoint() error {
	return s.ctx.Err()
}

func (s *Stepper) after(snap sequence.StepSnapshot) error {
	if s.publish != nil {
		s.publish(snap)
	}
	if s.pacer != nil {
		if err := s.pacer.Await(s.ctx); err != nil {
			return err
		}
	}
	return s.ctx.Err()
}

// maxValue scans for the largest value. It is a read, not a step.
func maxValue(s *Stepper) int {
	m := 0
	for i := 0; i < s.Len(); i++ {
		m = max(m, s.Get(i).Value)
	}
	return m
}
