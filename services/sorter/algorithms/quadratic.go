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

// Bubble sorts by adjacent comparisons over full passes.
//
// There is no early exit when a pass makes no swap, so a run of length n
// always takes exactly n(n-1)/2 comparisons.
func Bubble(s *Stepper) error {
	n := s.Len()
	if n < 2 {
		return nil
	}

	for i := 0; i < n-1; i++ {
		for j := 0; j < n-i-1; j++ {
			c, err := s.Compare(j, j+1)
			if err != nil {
				return err
			}
			if c > 0 {
				if err := s.Swap(j, j+1); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Insertion sorts by shifting larger elements right of a held key.
//
// Each comparison against the key and each shift is its own step.
func Insertion(s *Stepper) error {
	n := s.Len()
	if n < 2 {
		return nil
	}

	for i := 1; i < n; i++ {
		key := s.Get(i)
		j := i - 1
		for j >= 0 {
			c, err := s.CompareValue(j, key.Value)
			if err != nil {
				return err
			}
			if c <= 0 {
				break
			}
			if err := s.Set(j+1, s.Get(j)); err != nil {
				return err
			}
			j--
		}
		if j+1 != i {
			if err := s.Set(j+1, key); err != nil {
				return err
			}
		}
	}
	return nil
}

// BinaryInsertion finds the insertion point by binary search, then shifts the
// tail right.
//
// The search uses the closed interval low <= high and moves low past equal
// keys, so equal elements keep their order and an all-equal input performs
// no shifts.
func BinaryInsertion(s *Stepper) error {
	n := s.Len()
	if n < 2 {
		return nil
	}

	for i := 1; i < n; i++ {
		key := s.Get(i)
		low, high := 0, i-1
		for low <= high {
			mid := low + (high-low)/2
			c, err := s.CompareValue(mid, key.Value)
			if err != nil {
				return err
			}
			if c > 0 {
				high = mid - 1
			} else {
				low = mid + 1
			}
		}

		if low == i {
			continue
		}
		for j := i - 1; j >= low; j-- {
			if err := s.Set(j+1, s.Get(j)); err != nil {
				return err
			}
		}
		if err := s.Set(low, key); err != nil {
			return err
		}
	}
	return nil
}
