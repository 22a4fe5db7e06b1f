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
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsNegative(t *testing.T) {
	_, err := New([]int{3, -1, 2})
	require.ErrorIs(t, err, ErrNegativeValue)
}

func TestNew_InitialState(t *testing.T) {
	s, err := New([]int{4, 2, 7})
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, []int{4, 2, 7}, snap.Values)
	assert.Equal(t, "Idle", snap.Status)
	assert.Equal(t, NoIndex, snap.HighlightA)
	assert.Equal(t, NoIndex, snap.HighlightB)
	assert.Zero(t, snap.Comparisons)
	assert.Zero(t, snap.Step)
}

func TestNewRandom_Range(t *testing.T) {
	s := NewRandom(300, 500, rand.New(rand.NewSource(1)))
	require.Equal(t, 300, s.Len())
	for i, v := range s.Values() {
		assert.GreaterOrEqual(t, v, 0, "index %d", i)
		assert.Less(t, v, 500, "index %d", i)
	}
}

func TestNew_RejectsValuesAtOrAboveLimit(t *testing.T) {
	_, err := New([]int{1, ValueLimit, 2})
	require.ErrorIs(t, err, ErrValueOutOfRange)

	_, err = New([]int{1 << 36})
	require.ErrorIs(t, err, ErrValueOutOfRange)

	s, err := New([]int{0, ValueLimit - 1})
	require.NoError(t, err)
	assert.Equal(t, []int{0, ValueLimit - 1}, s.Values())
}

func TestStore_LoadOutOfRangeKeepsContents(t *testing.T) {
	s, err := New([]int{3, 1})
	require.NoError(t, err)

	require.ErrorIs(t, s.Load([]int{9, 1000}), ErrValueOutOfRange)
	assert.Equal(t, []int{3, 1}, s.Values())
}

func TestRandomize_ClampsToLimit(t *testing.T) {
	s := NewRandom(2000, 1<<36, rand.New(rand.NewSource(7)))
	for i, v := range s.Values() {
		assert.Less(t, v, ValueLimit, "index %d", i)
	}
}

func TestStore_Compare(t *testing.T) {
	s, err := New([]int{5, 3})
	require.NoError(t, err)

	c, snap := s.Compare(0, 1)
	assert.Equal(t, 1, c)
	assert.Equal(t, int64(1), snap.Comparisons)
	assert.Equal(t, 0, snap.HighlightA)
	assert.Equal(t, 1, snap.HighlightB)
	assert.Equal(t, uint64(1), snap.Step)

	c, snap = s.CompareValue(1, 3)
	assert.Equal(t, 0, c)
	assert.Equal(t, int64(2), snap.Comparisons)
	assert.Equal(t, NoIndex, snap.HighlightB)
}

func TestStore_SwapDoesNotCountComparison(t *testing.T) {
	s, err := New([]int{5, 3})
	require.NoError(t, err)

	snap := s.Swap(0, 1)
	assert.Equal(t, []int{3, 5}, s.Values())
	assert.Zero(t, snap.Comparisons)
	assert.Equal(t, int64(1), snap.Moves)
	assert.Equal(t, 0, snap.HighlightA)
	assert.Equal(t, 1, snap.HighlightB)
}

func TestStore_SetKeepsOrigin(t *testing.T) {
	s, err := New([]int{1, 2, 3})
	require.NoError(t, err)

	moved := s.Get(0)
	s.Set(2, moved)

	items := s.Items()
	assert.Equal(t, Item{Value: 1, Origin: 0}, items[2])
}

func TestStore_TallyAndTouch(t *testing.T) {
	s, err := New([]int{9, 8})
	require.NoError(t, err)

	snap := s.Tally(1)
	assert.Equal(t, int64(1), snap.Comparisons)
	assert.Equal(t, 1, snap.HighlightA)

	snap = s.Touch(0)
	assert.Equal(t, int64(1), snap.Comparisons)
	assert.Equal(t, uint64(2), snap.Step)
	assert.Equal(t, 0, snap.HighlightA)
}

func TestStore_OutOfRangePanics(t *testing.T) {
	s, err := New([]int{1, 2})
	require.NoError(t, err)

	tests := []struct {
		name string
		op   func()
	}{
		{"get", func() { s.Get(2) }},
		{"swap", func() { s.Swap(0, -1) }},
		{"set", func() { s.Set(5, Item{}) }},
		{"compare", func() { s.Compare(0, 2) }},
		{"tally", func() { s.Tally(-3) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				require.NotNil(t, r)
				ierr, ok := r.(*IndexError)
				require.True(t, ok, "panic value %T", r)
				assert.Equal(t, tt.name, ierr.Op)
				assert.Equal(t, 2, ierr.Len)
			}()
			tt.op()
		})
	}
}

func TestStore_ResetMetrics(t *testing.T) {
	s, err := New([]int{2, 1})
	require.NoError(t, err)
	s.Compare(0, 1)
	s.Swap(0, 1)

	s.ResetMetrics()
	snap := s.Snapshot()
	assert.Zero(t, snap.Comparisons)
	assert.Zero(t, snap.Moves)
	assert.Zero(t, snap.Step)
	assert.Equal(t, NoIndex, snap.HighlightA)
	assert.Equal(t, []Item{{1, 0}, {2, 1}}, s.Items())
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	s, err := New([]int{1, 2, 3})
	require.NoError(t, err)

	snap := s.Snapshot()
	snap.Values[0] = 99
	assert.Equal(t, 1, s.Get(0).Value)
}

// TestStore_SnapshotNotTorn runs a writer that always sets both highlights to
// the same index while readers check they never observe a mixed pair.
func TestStore_SnapshotNotTorn(t *testing.T) {
	s := NewRandom(64, 500, rand.New(rand.NewSource(7)))

	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for k := 0; k < 20000; k++ {
			i := k % 63
			s.Swap(i, i+1)
		}
		close(done)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				snap := s.Snapshot()
				if snap.HighlightA != NoIndex {
					assert.Equal(t, snap.HighlightA+1, snap.HighlightB)
					assert.Equal(t, int64(snap.Step), snap.Moves)
				}
			}
		}()
	}
	wg.Wait()
}
