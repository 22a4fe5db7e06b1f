// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sequence holds the mutable integer sequence that sorting runs animate.
//
// # Description
//
// The Store owns the values together with the observation fields derived from
// them: the highlight pair, the comparison and move counters, the step counter
// and the status label. Every primitive that an algorithm calls mutates those
// fields in one short critical section and returns the resulting StepSnapshot.
//
// # Thread Safety
//
// Store is written by a single worker and read by any number of observers.
// A sync.RWMutex guards all fields; Snapshot copies the values so the caller
// never aliases the live array.
package sequence

import (
	"cmp"
	"fmt"
	"math/rand"
	"sync"
)

// Store is the shared mutable sequence.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	items []Item

	highlightA  int
	highlightB  int
	comparisons int64
	moves       int64
	step        uint64
	status      string
}

// New creates a Store holding a copy of values.
//
// # Inputs
//
//   - values: Initial values. Must all be in [0, ValueLimit).
//
// # Outputs
//
//   - *Store: The store, status "Idle".
//   - error: ErrNegativeValue or ErrValueOutOfRange.
func New(values []int) (*Store, error) {
	s := &Store{status: "Idle", highlightA: NoIndex, highlightB: NoIndex}
	if err := s.Load(values); err != nil {
		return nil, err
	}
	return s, nil
}

// NewRandom creates a Store of n values drawn uniformly from [0, maxValue).
func NewRandom(n, maxValue int, rng *rand.Rand) *Store {
	s := &Store{
		items:      make([]Item, n),
		status:     "Idle",
		highlightA: NoIndex,
		highlightB: NoIndex,
	}
	s.Randomize(maxValue, rng)
	return s
}

// Load replaces the contents with a copy of values and resets all metrics.
//
// The length may change here; Load is only called while no run is active.
func (s *Store) Load(values []int) error {
	items := make([]Item, len(values))
	for i, v := range values {
		if v < 0 {
			return fmt.Errorf("%w: index %d holds %d", ErrNegativeValue, i, v)
		}
		if v >= ValueLimit {
			return fmt.Errorf("%w: index %d holds %d, limit %d", ErrValueOutOfRange, i, v, ValueLimit)
		}
		items[i] = Item{Value: v, Origin: i}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.resetMetricsLocked()
	return nil
}

// Randomize refills the sequence with fresh values in [0, maxValue), keeping
// the length, and resets all metrics. maxValue is clamped to [1, ValueLimit].
func (s *Store) Randomize(maxValue int, rng *rand.Rand) {
	maxValue = min(max(maxValue, 1), ValueLimit)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		s.items[i] = Item{Value: rng.Intn(maxValue), Origin: i}
	}
	s.resetMetricsLocked()
}

// ResetMetrics zeroes counters and clears the highlight pair.
// Origins are renumbered so stability can be checked for the next run.
func (s *Store) ResetMetrics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		s.items[i].Origin = i
	}
	s.resetMetricsLocked()
}

func (s *Store) resetMetricsLocked() {
	s.highlightA = NoIndex
	s.highlightB = NoIndex
	s.comparisons = 0
	s.moves = 0
	s.step = 0
}

// =============================================================================
// Reads
// =============================================================================

// Len returns the sequence length.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Get returns the item at index i.
//
// Panics with *IndexError if i is out of range.
func (s *Store) Get(i int) Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.checkLocked("get", i)
	return s.items[i]
}

// Values returns a copy of the current values.
func (s *Store) Values() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.valuesLocked()
}

// Items returns a copy of the current items, origins included.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Latest returns the most recent StepSnapshot without copying the values.
func (s *Store) Latest() StepSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stepLocked()
}

// Snapshot returns a consistent copy of the values and the latest step.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Values:       s.valuesLocked(),
		StepSnapshot: s.stepLocked(),
	}
}

func (s *Store) valuesLocked() []int {
	out := make([]int, len(s.items))
	for i, it := range s.items {
		out[i] = it.Value
	}
	return out
}

func (s *Store) stepLocked() StepSnapshot {
	return StepSnapshot{
		Step:        s.step,
		HighlightA:  s.highlightA,
		HighlightB:  s.highlightB,
		Comparisons: s.comparisons,
		Moves:       s.moves,
		Status:      s.status,
	}
}

// =============================================================================
// Status
// =============================================================================

// SetStatus replaces the status label.
func (s *Store) SetStatus(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = label
}

// ClearHighlight resets the highlight pair to none.
func (s *Store) ClearHighlight() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.highlightA = NoIndex
	s.highlightB = NoIndex
}

// =============================================================================
// Step Primitives
// =============================================================================

// Compare counts one comparison of items i and j and highlights both.
//
// # Outputs
//
//   - int: cmp.Compare(value[i], value[j]).
//   - StepSnapshot: The state right after the step.
func (s *Store) Compare(i, j int) (int, StepSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkLocked("compare", i)
	s.checkLocked("compare", j)

	c := cmp.Compare(s.items[i].Value, s.items[j].Value)
	s.comparisons++
	return c, s.advanceLocked(i, j)
}

// CompareValue counts one comparison of item i against a held value v
// (the key being inserted, for instance) and highlights i.
func (s *Store) CompareValue(i, v int) (int, StepSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkLocked("compare", i)

	c := cmp.Compare(s.items[i].Value, v)
	s.comparisons++
	return c, s.advanceLocked(i, NoIndex)
}

// Tally counts one comparison for item i without comparing it to anything.
// Key-extraction sorts (counting, radix, bucket) use it once per element they
// classify.
func (s *Store) Tally(i int) StepSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkLocked("tally", i)

	s.comparisons++
	return s.advanceLocked(i, NoIndex)
}

// Touch highlights item i without changing any counter besides the step.
func (s *Store) Touch(i int) StepSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkLocked("touch", i)
	return s.advanceLocked(i, NoIndex)
}

// Swap exchanges items i and j and highlights both.
//
// Swap is a movement, not a comparison: the comparison that led to it has
// already been counted by Compare.
func (s *Store) Swap(i, j int) StepSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkLocked("swap", i)
	s.checkLocked("swap", j)

	s.items[i], s.items[j] = s.items[j], s.items[i]
	s.moves++
	return s.advanceLocked(i, j)
}

// Set writes it at index i and highlights i.
func (s *Store) Set(i int, it Item) StepSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkLocked("set", i)

	s.items[i] = it
	s.moves++
	return s.advanceLocked(i, NoIndex)
}

func (s *Store) advanceLocked(a, b int) StepSnapshot {
	s.highlightA = a
	s.highlightB = b
	s.step++
	return s.stepLocked()
}

func (s *Store) checkLocked(op string, i int) {
	if i < 0 || i >= len(s.items) {
		panic(&IndexError{Op: op, Index: i, Len: len(s.items)})
	}
}
