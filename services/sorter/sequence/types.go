// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sequence

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrNegativeValue is returned when a sequence is loaded with a value below zero.
	// Counting, radix and bucket sort index scratch buffers by value.
	ErrNegativeValue = errors.New("sequence values must be non-negative")

	// ErrValueOutOfRange is returned when a sequence is loaded with a value at
	// or above ValueLimit.
	ErrValueOutOfRange = errors.New("sequence value out of range")
)

// ValueLimit is the exclusive upper bound of every value. The scratch buffers
// of counting sort are sized by the largest value, so the bound keeps them small.
const ValueLimit = 500

// IndexError is the panic value raised on an out-of-range access.
//
// Indices are always produced by algorithm code, so an out-of-range index is a
// programming fault rather than a user error. The coordinator recovers it at the
// worker boundary and ends the run with an error status.
type IndexError struct {
	// Op is the store primitive that was called (e.g. "swap").
	Op string

	// Index is the offending index.
	Index int

	// Len is the sequence length at the time of the call.
	Len int
}

// Error implements error.
func (e *IndexError) Error() string {
	return fmt.Sprintf("sequence %s: index %d out of range [0,%d)", e.Op, e.Index, e.Len)
}

// -----------------------------------------------------------------------------
// Value Types
// -----------------------------------------------------------------------------

// NoIndex marks an unused highlight slot.
const NoIndex = -1

// Item is one element of the sequence.
//
// Origin is the position the element held when the sequence was last loaded or
// randomized. It moves together with Value, so the relative order of equal
// values can be checked after a run.
type Item struct {
	Value  int
	Origin int
}

// StepSnapshot is the immutable record published after every step.
//
// All fields are captured in the same critical section as the mutation that
// produced them, so a reader never sees a highlight pair from one step next to
// a comparison count from another.
type StepSnapshot struct {
	// Step is the number of steps taken since the metrics were last reset.
	Step uint64

	// HighlightA and HighlightB are the indices touched by the step, or NoIndex.
	HighlightA int
	HighlightB int

	// Comparisons counts value comparisons in the current run.
	Comparisons int64

	// Moves counts element writes and swaps in the current run.
	Moves int64

	// Status is the human-readable status label.
	Status string
}

// Snapshot is a copied view of the whole store: values plus the latest step.
type Snapshot struct {
	Values []int
	StepSnapshot
}
