// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package algorithms implements the instrumented sorting procedures.
//
// # Description
//
// Every algorithm is a plain function over a Stepper. It never touches the
// store directly for writes: each comparison or movement goes through a
// Stepper primitive, which publishes a snapshot, paces the run and surfaces
// the stop signal. All algorithms assume non-negative integer values; the
// distribution sorts (radix, bucket, counting) index scratch buffers by value.
//
// Sequences shorter than two elements return immediately without a step.
//
// # Registry
//
// The built-in algorithms are registered under stable names:
//
//	bubble, insertion, binary-insertion, merge, quick, radix, bucket, counting
//
// Lookup resolves a name; Register adds or replaces an entry.
package algorithms

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownAlgorithm is returned by Resolve for names not in the registry.
var ErrUnknownAlgorithm = errors.New("unknown sorting algorithm")

// RunFunc is the body of a sorting algorithm.
type RunFunc func(s *Stepper) error

// Algorithm describes one registered sorting procedure.
type Algorithm struct {
	// Name is the stable identifier used by Start (e.g. "binary-insertion").
	Name string

	// Label is the display name (e.g. "Binary Insertion Sort").
	Label string

	// Complexity is the time complexity shown next to the metrics.
	Complexity string

	// Run sorts the sequence behind the Stepper.
	Run RunFunc
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Algorithm{}
	order      []string
)

func init() {
	for _, a := range []Algorithm{
		{Name: "bubble", Label: "Bubble Sort", Complexity: "O(n²)", Run: Bubble},
		{Name: "insertion", Label: "Insertion Sort", Complexity: "O(n²)", Run: Insertion},
		{Name: "binary-insertion", Label: "Binary Insertion Sort", Complexity: "O(n²)", Run: BinaryInsertion},
		{Name: "merge", Label: "Merge Sort", Complexity: "O(n log n)", Run: Merge},
		{Name: "quick", Label: "Quick Sort", Complexity: "O(n log n)", Run: Quick},
		{Name: "radix", Label: "Radix Sort", Complexity: "O(nk)", Run: Radix},
		{Name: "bucket", Label: "Bucket Sort", Complexity: "O(n + k)", Run: Bucket},
		{Name: "counting", Label: "Counting Sort", Complexity: "O(n + k)", Run: Counting},
	} {
		Register(a)
	}
}

// Register adds a to the registry, replacing any entry with the same name.
// Registration order is preserved by All and Names.
func Register(a Algorithm) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[a.Name]; !ok {
		order = append(order, a.Name)
	}
	registry[a.Name] = a
}

// Lookup returns the algorithm registered under name.
func Lookup(name string) (Algorithm, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := registry[name]
	return a, ok
}

// Resolve is Lookup returning ErrUnknownAlgorithm for a missing name.
func Resolve(name string) (Algorithm, error) {
	a, ok := Lookup(name)
	if !ok {
		return Algorithm{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
	return a, nil
}

// All returns every registered algorithm in registration order.
func All() []Algorithm {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Algorithm, 0, len(order))
	for _, name := range order {
		out = append(out, registry[name])
	}
	return out
}

// Names returns the registered names in registration order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, len(order))
	copy(out, order)
	return out
}
