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

import "github.com/AleutianAI/sortvis/services/sorter/sequence"

// =============================================================================
// Merge Sort
// =============================================================================

// Merge is a top-down recursive merge sort.
//
// Heads are compared with <=, taking from the left run on ties, so the sort
// is stable. The merged run is copied back into place one animated write at
// a time.
func Merge(s *Stepper) error {
	if s.Len() < 2 {
		return nil
	}
	return mergeSort(s, 0, s.Len()-1)
}

func mergeSort(s *Stepper, l, r int) error {
	if err := s.Checkpoint(); err != nil {
		return err
	}
	if l >= r {
		return nil
	}

	m := l + (r-l)/2
	if err := mergeSort(s, l, m); err != nil {
		return err
	}
	if err := mergeSort(s, m+1, r); err != nil {
		return err
	}
	return merge(s, l, m, r)
}

func merge(s *Stepper, l, m, r int) error {
	temp := make([]sequence.Item, 0, r-l+1)
	i, j := l, m+1

	for i <= m && j <= r {
		c, err := s.Compare(i, j)
		if err != nil {
			return err
		}
		if c <= 0 {
			temp = append(temp, s.Get(i))
			i++
		} else {
			temp = append(temp, s.Get(j))
			j++
		}
	}
	for ; i <= m; i++ {
		temp = append(temp, s.Get(i))
	}
	for ; j <= r; j++ {
		temp = append(temp, s.Get(j))
	}

	for k, it := range temp {
		if err := s.Set(l+k, it); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Quick Sort
// =============================================================================

// Quick is a recursive quicksort using the Lomuto partition scheme with the
// last element of each subrange as pivot.
func Quick(s *Stepper) error {
	if s.Len() < 2 {
		return nil
	}
	return quickSort(s, 0, s.Len()-1)
}

func quickSort(s *Stepper, low, high int) error {
	if err := s.Checkpoint(); err != nil {
		return err
	}
	if low >= high {
		return nil
	}

	p, err := partition(s, low, high)
	if err != nil {
		return err
	}
	if err := quickSort(s, low, p-1); err != nil {
		return err
	}
	return quickSort(s, p+1, high)
}

// partition moves every element smaller than the pivot (at high) to the
// front of the range and returns the pivot's final index. The pivot stays at
// high until the final swap, so comparisons read it in place.
func partition(s *Stepper, low, high int) (int, error) {
	i := low - 1
	for j := low; j < high; j++ {
		c, err := s.Compare(j, high)
		if err != nil {
			return 0, err
		}
		if c < 0 {
			i++
			if err := s.Swap(i, j); err != nil {
				return 0, err
			}
		}
	}
	if err := s.Swap(i+1, high); err != nil {
		return 0, err
	}
	return i + 1, nil
}
