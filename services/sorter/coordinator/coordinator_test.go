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
	"context"
	"io"
	"log/slog"
	"math/rand"
	"runtime"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AleutianAI/sortvis/services/sorter/algorithms"
	"github.com/AleutianAI/sortvis/services/sorter/pacing"
	"github.com/AleutianAI/sortvis/services/sorter/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Helpers
// =============================================================================

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func instant() pacing.Config {
	return pacing.Config{FastMode: true}
}

func slow(d time.Duration) pacing.Config {
	return pacing.Config{FastDelay: d, SlowDelay: d, FastMode: true}
}

func newTestCoordinator(t *testing.T, initial []int, pc pacing.Config) *Coordinator {
	t.Helper()
	c, err := New(Config{
		Initial:  initial,
		MaxValue: 500,
		Seed:     1,
		Pacing:   pc,
	}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func randomInput(n int, seed int64) []int {
	rng := rand.New(rand.NewSource(seed))
	out := make([]int, n)
	for i := range out {
		out[i] = rng.Intn(500)
	}
	return out
}

// builtinNames excludes algorithms registered by tests.
func builtinNames() []string {
	var out []string
	for _, name := range algorithms.Names() {
		if !strings.HasPrefix(name, "test-") {
			out = append(out, name)
		}
	}
	return out
}

func waitDone(t *testing.T, c *Coordinator) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))
	snap := c.Snapshot()
	require.Equal(t, StateDone, snap.State)
	return snap
}

// =============================================================================
// Construction
// =============================================================================

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{Size: -1}, quietLogger())
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{Initial: []int{1, -2}}, quietLogger())
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{Pacing: pacing.Config{SlowDelay: -time.Second}}, quietLogger())
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNew_RejectsValuesOutsideDomain(t *testing.T) {
	_, err := New(Config{Size: 8, MaxValue: 1 << 36}, quietLogger())
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{Size: 8, MaxValue: sequence.ValueLimit + 1}, quietLogger())
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{Initial: []int{3, 1 << 36, 1}}, quietLogger())
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.ErrorIs(t, err, sequence.ErrValueOutOfRange)

	c, err := New(Config{Size: 8, MaxValue: sequence.ValueLimit, Seed: 1}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
}

func TestNew_InitialState(t *testing.T) {
	c := newTestCoordinator(t, []int{4, 2, 9}, instant())

	snap := c.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Equal(t, []int{4, 2, 9}, snap.Values)
	assert.Zero(t, snap.Comparisons)
	assert.Equal(t, sequence.NoIndex, snap.HighlightA)
	assert.Empty(t, snap.Algorithm)
}

func TestNew_RandomValues(t *testing.T) {
	c, err := New(Config{Size: 40, MaxValue: 10, Seed: 3}, quietLogger())
	require.NoError(t, err)
	defer c.Close()

	snap := c.Snapshot()
	require.Len(t, snap.Values, 40)
	for _, v := range snap.Values {
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 10)
	}
}

// =============================================================================
// Run Lifecycle
// =============================================================================

func TestStart_RunsToDone(t *testing.T) {
	c := newTestCoordinator(t, []int{5, 3, 8, 1}, instant())

	require.NoError(t, c.Start("quick"))
	snap := waitDone(t, c)

	assert.Equal(t, []int{1, 3, 5, 8}, snap.Values)
	assert.Equal(t, StatusDone, snap.Status)
	assert.Equal(t, int64(5), snap.Comparisons)
	assert.Equal(t, sequence.NoIndex, snap.HighlightA)
	assert.Equal(t, sequence.NoIndex, snap.HighlightB)
	assert.Equal(t, "quick", snap.Algorithm)
	assert.Equal(t, "Quick Sort", snap.Label)
	assert.Equal(t, "O(n log n)", snap.Complexity)
	assert.NotEmpty(t, snap.RunID)
}

func TestStart_EveryAlgorithmSorts(t *testing.T) {
	input := randomInput(120, 7)
	want := slices.Clone(input)
	slices.Sort(want)

	for _, name := range builtinNames() {
		t.Run(name, func(t *testing.T) {
			c := newTestCoordinator(t, input, instant())
			require.NoError(t, c.Start(name))
			snap := waitDone(t, c)
			assert.Equal(t, want, snap.Values)
			assert.Equal(t, StatusDone, snap.Status)
		})
	}
}

func TestStart_UnknownAlgorithm(t *testing.T) {
	c := newTestCoordinator(t, []int{2, 1}, instant())

	err := c.Start("bogo")
	require.ErrorIs(t, err, ErrUnknownAlgorithm)
	assert.Equal(t, StateIdle, c.State())
}

func TestStart_CountersResetBetweenRuns(t *testing.T) {
	c := newTestCoordinator(t, []int{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, instant())

	require.NoError(t, c.Start("insertion"))
	assert.Equal(t, int64(45), waitDone(t, c).Comparisons)

	// Second run sees the sorted output and starts counting from zero.
	require.NoError(t, c.Start("insertion"))
	assert.Equal(t, int64(9), waitDone(t, c).Comparisons)
}

func TestStart_WhileRunningRequestsStop(t *testing.T) {
	c := newTestCoordinator(t, randomInput(150, 1), slow(10*time.Millisecond))

	require.NoError(t, c.Start("bubble"))
	err := c.Start("quick")
	require.ErrorIs(t, err, ErrRunActive)

	snap := waitDone(t, c)
	assert.Equal(t, StatusStopped, snap.Status)
	assert.Equal(t, "bubble", snap.Algorithm, "the second start must not chain a new run")

	require.NoError(t, c.Start("quick"))
	assert.Equal(t, "quick", c.Snapshot().Algorithm)
}

func TestStart_EmptyAndSingle(t *testing.T) {
	for _, input := range [][]int{{}, {7}} {
		for _, name := range builtinNames() {
			c := newTestCoordinator(t, input, slow(time.Second))
			require.NoError(t, c.Start(name))
			snap := waitDone(t, c)
			assert.Equal(t, StatusDone, snap.Status, name)
			assert.Zero(t, snap.Comparisons, name)
			assert.Equal(t, input, snap.Values, name)
		}
	}
}

// =============================================================================
// Stop
// =============================================================================

func TestRequestStop_EveryAlgorithmStopsWithinOneStep(t *testing.T) {
	// The delay wait is interrupted by the stop, so the worker exits well
	// inside a single step delay even mid-wait.
	const delay = 100 * time.Millisecond
	input := randomInput(200, 11)

	for _, name := range builtinNames() {
		t.Run(name, func(t *testing.T) {
			c := newTestCoordinator(t, input, slow(delay))
			require.NoError(t, c.Start(name))

			time.Sleep(delay + delay/2)
			requested := time.Now()
			c.RequestStop()
			snap := waitDone(t, c)

			assert.Less(t, time.Since(requested), delay)
			assert.Equal(t, StatusStopped, snap.Status)
			assert.Equal(t, sequence.NoIndex, snap.HighlightA)
		})
	}
}

func TestRequestStop_NoRunIsNoop(t *testing.T) {
	c := newTestCoordinator(t, []int{1, 2}, instant())
	c.RequestStop()
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, StatusIdle, c.Snapshot().Status)
}

func TestRequestStop_NoStepsAfterExit(t *testing.T) {
	c := newTestCoordinator(t, randomInput(100, 5), slow(5*time.Millisecond))
	require.NoError(t, c.Start("bubble"))
	time.Sleep(30 * time.Millisecond)

	c.RequestStop()
	step := waitDone(t, c).Step

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, step, c.Snapshot().Step)
}

// =============================================================================
// Pause
// =============================================================================

func TestTogglePause_NotRunning(t *testing.T) {
	c := newTestCoordinator(t, []int{1, 2}, instant())
	_, err := c.TogglePause()
	require.ErrorIs(t, err, ErrNotRunning)
}

func TestTogglePause_FreezesAndResumes(t *testing.T) {
	c := newTestCoordinator(t, randomInput(100, 2), slow(5*time.Millisecond))
	require.NoError(t, c.Start("bubble"))
	time.Sleep(20 * time.Millisecond)

	paused, err := c.TogglePause()
	require.NoError(t, err)
	require.True(t, paused)

	snap := c.Snapshot()
	assert.Equal(t, StatePaused, snap.State)
	assert.Equal(t, "Paused: Bubble Sort", snap.Status)
	assert.True(t, snap.Paused)

	// At most the in-flight step completes after pausing.
	time.Sleep(20 * time.Millisecond)
	frozen := c.Snapshot().Step
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, frozen, c.Snapshot().Step)

	paused, err = c.TogglePause()
	require.NoError(t, err)
	require.False(t, paused)
	assert.Equal(t, "Sorting: Bubble Sort", c.Snapshot().Status)

	assert.Eventually(t, func() bool { return c.Snapshot().Step > frozen },
		time.Second, 5*time.Millisecond)
}

func TestRequestStop_WhilePaused(t *testing.T) {
	c := newTestCoordinator(t, randomInput(100, 3), slow(5*time.Millisecond))
	require.NoError(t, c.Start("merge"))
	time.Sleep(15 * time.Millisecond)

	_, err := c.TogglePause()
	require.NoError(t, err)

	c.RequestStop()
	snap := waitDone(t, c)
	assert.Equal(t, StatusStopped, snap.Status)
	assert.False(t, snap.Paused)
}

// =============================================================================
// Reset
// =============================================================================

func TestReset_Idempotent(t *testing.T) {
	c := newTestCoordinator(t, randomInput(30, 4), instant())

	for i := 0; i < 2; i++ {
		c.Reset()
		snap := c.Snapshot()
		assert.Equal(t, StateIdle, snap.State)
		assert.Equal(t, StatusIdle, snap.Status)
		assert.Zero(t, snap.Comparisons)
		assert.Len(t, snap.Values, 30)
	}
}

func TestReset_StopsActiveRun(t *testing.T) {
	c := newTestCoordinator(t, randomInput(150, 6), slow(10*time.Millisecond))
	require.NoError(t, c.Start("quick"))
	time.Sleep(30 * time.Millisecond)

	c.Reset()

	snap := c.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Zero(t, snap.Comparisons)
	assert.Zero(t, snap.Step)
	assert.Empty(t, snap.Algorithm)

	// The old worker has exited; nothing moves.
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, c.Snapshot().Step)
}

// =============================================================================
// Faults
// =============================================================================

var registerFault sync.Once

func TestFault_RecoveredAsErrorStatus(t *testing.T) {
	registerFault.Do(func() {
		algorithms.Register(algorithms.Algorithm{
			Name:       "test-fault",
			Label:      "Fault",
			Complexity: "O(1)",
			Run: func(s *algorithms.Stepper) error {
				return s.Swap(0, s.Len())
			},
		})
	})

	c := newTestCoordinator(t, []int{3, 1, 2}, instant())
	require.NoError(t, c.Start("test-fault"))
	snap := waitDone(t, c)
	assert.True(t, strings.HasPrefix(snap.Status, "Error: "), snap.Status)

	c.Reset()
	assert.Equal(t, StateIdle, c.State())

	require.NoError(t, c.Start("quick"))
	snap = waitDone(t, c)
	assert.Equal(t, StatusDone, snap.Status)
	assert.True(t, slices.IsSorted(snap.Values))
}

// =============================================================================
// Observers
// =============================================================================

func TestSnapshot_ConsistentUnderConcurrentReads(t *testing.T) {
	const n = 100
	c := newTestCoordinator(t, randomInput(n, 8), slow(100*time.Microsecond))
	require.NoError(t, c.Start("bubble"))

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				snap := c.Snapshot()
				if !assert.Len(t, snap.Values, n) {
					return
				}
				assert.True(t, snap.HighlightA == sequence.NoIndex || (snap.HighlightA >= 0 && snap.HighlightA < n))
				assert.True(t, snap.HighlightB == sequence.NoIndex || (snap.HighlightB >= 0 && snap.HighlightB < n))
				switch snap.State {
				case StateRunning:
					assert.Equal(t, "Sorting: Bubble Sort", snap.Status)
				case StateDone:
					assert.Contains(t, []string{StatusDone, StatusStopped}, snap.Status)
				}
			}
		}()
	}
	wg.Wait()
	c.RequestStop()
	waitDone(t, c)
}

func TestSubscribe_DeliversStepsInOrder(t *testing.T) {
	c := newTestCoordinator(t, randomInput(60, 9), instant())
	feed, cancel := c.Subscribe()
	defer cancel()

	require.NoError(t, c.Start("merge"))

	var last uint64
	timeout := time.After(10 * time.Second)
	for {
		select {
		case snap, ok := <-feed:
			require.True(t, ok)
			require.GreaterOrEqual(t, snap.Step, last)
			last = snap.Step
			if snap.Status == StatusDone {
				assert.Equal(t, c.Snapshot().Step, snap.Step)
				return
			}
		case <-timeout:
			t.Fatal("final snapshot never delivered")
		}
	}
}

// finishRecorder collects the comparison count of every "sort finished" record.
type finishRecorder struct {
	mu     sync.Mutex
	counts []int64
}

func (h *finishRecorder) Enabled(context.Context, slog.Level) bool { return true }
func (h *finishRecorder) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h *finishRecorder) WithGroup(string) slog.Handler             { return h }

func (h *finishRecorder) Handle(_ context.Context, r slog.Record) error {
	if r.Message != "sort finished" {
		return nil
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key != "comparisons" {
			return true
		}
		h.mu.Lock()
		h.counts = append(h.counts, a.Value.Int64())
		h.mu.Unlock()
		return false
	})
	return nil
}

func (h *finishRecorder) finished() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.counts)
}

func TestStart_RestartAtDoneKeepsFinalSnapshotOrdered(t *testing.T) {
	rec := &finishRecorder{}
	c, err := New(Config{
		Initial:  []int{10, 9, 8, 7, 6, 5, 4, 3, 2, 1},
		MaxValue: 500,
		Seed:     1,
		Pacing:   instant(),
	}, slog.New(rec))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	feed, _ := c.Subscribe()
	var seen []sequence.StepSnapshot
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for snap := range feed {
			seen = append(seen, snap)
		}
	}()

	// Bubble sort has no early exit, so every run on 10 items makes 45
	// comparisons whether or not the input is already sorted.
	const runs = 30
	for range runs {
		require.NoError(t, c.Start("bubble"))
		deadline := time.Now().Add(10 * time.Second)
		for c.State() != StateDone {
			require.True(t, time.Now().Before(deadline), "run never finished")
			runtime.Gosched()
		}
	}
	c.Reset()
	require.NoError(t, c.Close())
	<-collected

	assert.Equal(t, slices.Repeat([]int64{45}, runs), rec.finished())

	require.NotEmpty(t, seen)
	assert.Equal(t, StatusIdle, seen[len(seen)-1].Status, "reset snapshot arrives last")
	for i, snap := range seen {
		switch {
		case snap.Status == StatusDone:
			assert.EqualValues(t, 45, snap.Comparisons, "snapshot %d", i)
		case strings.HasPrefix(snap.Status, "Sorting: "):
			// Start publishes nothing, so a sorting snapshot is always a step.
			assert.NotZero(t, snap.Step, "snapshot %d", i)
			assert.NotEqual(t, sequence.NoIndex, snap.HighlightA, "snapshot %d", i)
		}
	}
}

func TestClose_StopsRunAndRejectsStart(t *testing.T) {
	c, err := New(Config{Initial: randomInput(100, 10), Pacing: slow(10 * time.Millisecond)}, quietLogger())
	require.NoError(t, err)

	feed, _ := c.Subscribe()
	require.NoError(t, c.Start("bubble"))

	require.NoError(t, c.Close())
	assert.Equal(t, StateDone, c.State())
	require.ErrorIs(t, c.Start("quick"), ErrClosed)
	require.NoError(t, c.Close())

	for range feed {
	}
}

func TestStopReason_IsCause(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(StopReset)
	assert.ErrorIs(t, context.Cause(ctx), StopReset)
	assert.Equal(t, "sort stopped: reset", StopReset.Error())
	assert.Equal(t, "stopping", StateStopping.String())
}
