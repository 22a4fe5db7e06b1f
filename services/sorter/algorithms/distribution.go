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
	"cmp"
	"slices"

	"github.com/AleutianAI/sortvis/services/sorter/sequence"
)

// bucketCount is the fixed number of buckets used by Bucket.
const bucketCount = 10

// =============================================================================
// Radix Sort
// =============================================================================

// Radix is an LSD base-10 radix sort.
//
// One stable counting pass runs per decimal digit while max/exp > 0. Each
// element classified counts as one comparison; the write-back is animated.
func Radix(s *Stepper) error {
	n := s.Len()
	if n < 2 {
		return nil
	}

	m := maxValue(s)
	for exp := 1; m/exp > 0; exp *= 10 {
		if err := radixPass(s, exp); err != nil {
			return err
		}
	}
	return nil
}

func radixPass(s *Stepper, exp int) error {
	n := s.Len()
	src := make([]sequence.Item, n)
	var count [10]int

	for i := 0; i < n; i++ {
		if err := s.Tally(i); err != nil {
			return err
		}
		src[i] = s.Get(i)
		count[(src[i].Value/exp)%10]++
	}

	for d := 1; d < 10; d++ {
		count[d] += count[d-1]
	}

	// Backward placement keeps equal digits in source order.
	out := make([]sequence.Item, n)
	for i := n - 1; i >= 0; i-- {
		d := (src[i].Value / exp) % 10
		count[d]--
		out[count[d]] = src[i]
	}

	return writeBack(s, out)
}

// =============================================================================
// Bucket Sort
// =============================================================================

// Bucket distributes values into ten buckets by value*10/(max+1), sorts each
// bucket stably and concatenates them in bucket order.
//
// Only bucket assignments count as comparisons; the per-bucket sort is not
// instrumented.
func Bucket(s *Stepper) error {
	n := s.Len()
	if n < 2 {
		return nil
	}

	m := maxValue(s)
	buckets := make([][]sequence.Item, bucketCount)
	for i := 0; i < n; i++ {
		if err := s.Tally(i); err != nil {
			return err
		}
		it := s.Get(i)
		idx := it.Value * bucketCount / (m + 1)
		buckets[idx] = append(buckets[idx], it)
	}

	out := make([]sequence.Item, 0, n)
	for _, b := range buckets {
		slices.SortStableFunc(b, func(x, y sequence.Item) int {
			return cmp.Compare(x.Value, y.Value)
		})
		out = append(out, b...)
	}

	return writeBack(s, out)
}

// =============================================================================
// Counting Sort
// =============================================================================

// Counting is a stable counting sort over a count array of size max+1.
//
// The count array always has at least one slot, so an all-zero input is
// handled without special cases. Outputs are placed from index n-1 down to 0,
// decrementing each slot as it is consumed.
func Counting(s *Stepper) error {
	n := s.Len()
	if n < 2 {
		return nil
	}

	m := maxValue(s)
	count := make([]int, m+1)
	for i := 0; i < n; i++ {
		if err := s.Tally(i); err != nil {
			return err
		}
		count[s.Get(i).Value]++
	}

	for v := 1; v < len(count); v++ {
		count[v] += count[v-1]
	}

	out := make([]sequence.Item, n)
	for i := n - 1; i >= 0; i-- {
		if err := s.Touch(i); err != nil {
			return err
		}
		it := s.Get(i)
		count[it.Value]--
		out[count[it.Value]] = it
	}

	return writeBack(s, out)
}

// writeBack copies a scratch buffer into the live sequence, one step per index.
func writeBack(s *Stepper, out []sequence.Item) error {
	for i, it := range out {
		if err := s.Set(i, it); err != nil {
			return err
		}
	}
	return nil
}
