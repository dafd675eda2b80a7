// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package recovery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingProbe records every candidate it sees and answers according to
// the configured password. It is single-worker by contract, but the mutex
// lets the test read concurrently.
type recordingProbe struct {
	mu       sync.Mutex
	seen     []string
	password string // empty: never correct
}

func (p *recordingProbe) Test(_ context.Context, candidate string) (ProbeOutcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, candidate)
	if p.password != "" && candidate == p.password {
		return ProbeCorrect, nil
	}
	return ProbeWrongPassword, nil
}

func (p *recordingProbe) candidates() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.seen))
	copy(out, p.seen)
	return out
}

func quietConfig() ControllerConfig {
	return ControllerConfig{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		BatchSize: 2,
	}
}

func waitResult(t *testing.T, c *Controller) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := c.Wait(ctx)
	require.NoError(t, err)
	return result
}

func TestControllerSucceedsOnFifthCandidate(t *testing.T) {
	cfg := GenerationConfig{MinLength: 1, MaxLength: 3, Alphabet: Alphabet("ab")}
	// Sequence: a, b, aa, ab, ba, ... so the 5th candidate is "ba".
	probe := &recordingProbe{password: "ba"}
	c := NewController(quietConfig())

	_, err := c.Start(context.Background(), cfg, probe, false)
	require.NoError(t, err)

	result := waitResult(t, c)
	assert.Equal(t, ResultFound, result.Kind)
	assert.Equal(t, "ba", result.Password)
	assert.Equal(t, StateSucceeded, c.State())

	// Exactly 5 attempts, and no 6th candidate was ever generated.
	assert.Equal(t, []string{"a", "b", "aa", "ab", "ba"}, probe.candidates())
	assert.Equal(t, uint64(5), c.Snapshot().Attempts)
}

func TestControllerExhaustsBoundedSpace(t *testing.T) {
	cfg := GenerationConfig{MinLength: 1, MaxLength: 2, Alphabet: Alphabet("ab")}
	probe := &recordingProbe{}
	c := NewController(quietConfig())

	_, err := c.Start(context.Background(), cfg, probe, false)
	require.NoError(t, err)

	result := waitResult(t, c)
	assert.Equal(t, ResultNotFound, result.Kind)
	assert.Equal(t, StateExhausted, c.State())

	// attemptsCount equals the full estimated size: 2 + 4 = 6.
	total, ok := EstimateSize(cfg).Uint64()
	require.True(t, ok)
	assert.Equal(t, total, c.Snapshot().Attempts)
	assert.Len(t, probe.candidates(), int(total))
}

func TestControllerRejectsInvalidConfiguration(t *testing.T) {
	c := NewController(quietConfig())
	probe := &recordingProbe{}

	tests := []struct {
		name string
		cfg  GenerationConfig
	}{
		{"empty alphabet", GenerationConfig{MinLength: 1, MaxLength: 2}},
		{"zero min length", GenerationConfig{MinLength: 0, MaxLength: 2, Alphabet: Alphabet("ab")}},
		{"max below min", GenerationConfig{MinLength: 3, MaxLength: 2, Alphabet: Alphabet("ab")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Start(context.Background(), tt.cfg, probe, false)
			require.ErrorIs(t, err, ErrInvalidConfiguration)
			assert.Equal(t, StateIdle, c.State())
		})
	}
}

func TestControllerConfirmationGate(t *testing.T) {
	ctrlCfg := quietConfig()
	ctrlCfg.ConfirmationThreshold = 5
	c := NewController(ctrlCfg)

	// Estimate 6 > threshold 5.
	cfg := GenerationConfig{MinLength: 1, MaxLength: 2, Alphabet: Alphabet("ab")}
	probe := &recordingProbe{}

	_, err := c.Start(context.Background(), cfg, probe, false)
	require.ErrorIs(t, err, ErrConfirmationRequired)
	assert.Empty(t, probe.candidates(), "gated start must not test anything")

	_, err = c.Start(context.Background(), cfg, probe, true)
	require.NoError(t, err)
	result := waitResult(t, c)
	assert.Equal(t, ResultNotFound, result.Kind)
}

func TestControllerConfirmationGateUnbounded(t *testing.T) {
	c := NewController(quietConfig())
	cfg := GenerationConfig{MinLength: 1, MaxLength: NoMaxLength, Alphabet: Alphabet("ab")}

	_, err := c.Start(context.Background(), cfg, &recordingProbe{}, false)
	require.ErrorIs(t, err, ErrConfirmationRequired)
}

func TestControllerSessionAlreadyActive(t *testing.T) {
	release := make(chan struct{})
	blocking := ProbeFunc(func(ctx context.Context, _ string) (ProbeOutcome, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return ProbeWrongPassword, nil
	})

	c := NewController(quietConfig())
	cfg := GenerationConfig{MinLength: 1, MaxLength: 2, Alphabet: Alphabet("ab")}

	_, err := c.Start(context.Background(), cfg, blocking, false)
	require.NoError(t, err)

	_, err = c.Start(context.Background(), cfg, &recordingProbe{}, false)
	require.ErrorIs(t, err, ErrSessionActive)

	close(release)
	result := waitResult(t, c)
	assert.Equal(t, ResultNotFound, result.Kind)

	// A terminal session frees the controller for a new Start.
	_, err = c.Start(context.Background(), cfg, &recordingProbe{}, false)
	require.NoError(t, err)
	waitResult(t, c)
}

func TestControllerPauseResume(t *testing.T) {
	cfg := GenerationConfig{MinLength: 1, MaxLength: 2, Alphabet: Alphabet("ab")}
	full := []string{"a", "b", "aa", "ab", "ba", "bb"}

	third := make(chan struct{})
	var once sync.Once
	probe := &recordingProbe{}
	gated := ProbeFunc(func(ctx context.Context, candidate string) (ProbeOutcome, error) {
		out, err := probe.Test(ctx, candidate)
		if len(probe.candidates()) == 3 {
			once.Do(func() { close(third) })
		}
		return out, err
	})

	c := NewController(quietConfig())
	_, err := c.Start(context.Background(), cfg, gated, false)
	require.NoError(t, err)

	<-third
	require.NoError(t, c.Pause())
	require.Eventually(t, func() bool { return c.State() == StatePaused },
		2*time.Second, time.Millisecond)

	// The cursor points at the last tested candidate.
	cur, err := c.Cursor()
	require.NoError(t, err)
	tested := probe.candidates()
	assert.Equal(t, tested[len(tested)-1], cur.Candidate(cfg.Alphabet))

	// Elapsed time stops while paused.
	assert.Equal(t, StatePaused, c.Snapshot().State)
	elapsedA := c.Snapshot().Elapsed
	time.Sleep(20 * time.Millisecond)
	elapsedB := c.Snapshot().Elapsed
	assert.InDelta(t, elapsedA.Seconds(), elapsedB.Seconds(), 0.005)

	require.NoError(t, c.Resume())
	result := waitResult(t, c)
	assert.Equal(t, ResultNotFound, result.Kind)

	// No candidate was retested, none skipped.
	assert.Equal(t, full, probe.candidates())
}

func TestControllerCancel(t *testing.T) {
	// Large enough that the session cannot exhaust before Cancel lands.
	cfg := GenerationConfig{MinLength: 1, MaxLength: 8, Alphabet: Alphabet("abcdefgh")}

	started := make(chan struct{})
	var once sync.Once
	probe := ProbeFunc(func(_ context.Context, _ string) (ProbeOutcome, error) {
		once.Do(func() { close(started) })
		return ProbeWrongPassword, nil
	})

	c := NewController(quietConfig())
	_, err := c.Start(context.Background(), cfg, probe, false)
	require.NoError(t, err)

	<-started
	require.NoError(t, c.Cancel())
	result := waitResult(t, c)
	assert.Equal(t, ResultCancelled, result.Kind)
	assert.Equal(t, StateCancelled, c.State())

	// Terminal: further control calls fail.
	assert.ErrorIs(t, c.Cancel(), ErrNoSession)
	assert.ErrorIs(t, c.Pause(), ErrNoSession)
	assert.ErrorIs(t, c.Resume(), ErrNoSession)
}

func TestControllerCancelWhilePaused(t *testing.T) {
	cfg := GenerationConfig{MinLength: 1, MaxLength: 8, Alphabet: Alphabet("abcdefgh")}
	c := NewController(quietConfig())

	_, err := c.Start(context.Background(), cfg, &recordingProbe{}, false)
	require.NoError(t, err)
	require.NoError(t, c.Pause())
	require.Eventually(t, func() bool { return c.State() == StatePaused },
		2*time.Second, time.Millisecond)

	require.NoError(t, c.Cancel())
	result := waitResult(t, c)
	assert.Equal(t, ResultCancelled, result.Kind)
}

func TestControllerContextCancellation(t *testing.T) {
	cfg := GenerationConfig{MinLength: 1, MaxLength: 8, Alphabet: Alphabet("abcdefgh")}
	ctx, cancel := context.WithCancel(context.Background())

	c := NewController(quietConfig())
	_, err := c.Start(ctx, cfg, &recordingProbe{}, false)
	require.NoError(t, err)

	cancel()
	result := waitResult(t, c)
	assert.Equal(t, ResultCancelled, result.Kind)
}

func TestControllerContextCancelledDuringProbe(t *testing.T) {
	// The probe observes the cancellation before the controller's watcher
	// goroutine does; the session must still finish Cancelled, not Failed.
	ctx, cancel := context.WithCancel(context.Background())
	probe := ProbeFunc(func(probeCtx context.Context, _ string) (ProbeOutcome, error) {
		cancel()
		<-probeCtx.Done()
		return 0, probeCtx.Err()
	})

	c := NewController(quietConfig())
	cfg := GenerationConfig{MinLength: 1, MaxLength: 2, Alphabet: Alphabet("ab")}
	_, err := c.Start(ctx, cfg, probe, false)
	require.NoError(t, err)

	result := waitResult(t, c)
	assert.Equal(t, ResultCancelled, result.Kind)
	assert.Equal(t, StateCancelled, c.State())
}

func TestControllerProbeFatalError(t *testing.T) {
	boom := errors.New("document unreadable")
	probe := ProbeFunc(func(_ context.Context, _ string) (ProbeOutcome, error) {
		return 0, boom
	})

	c := NewController(quietConfig())
	cfg := GenerationConfig{MinLength: 1, MaxLength: 2, Alphabet: Alphabet("ab")}
	_, err := c.Start(context.Background(), cfg, probe, false)
	require.NoError(t, err)

	result := waitResult(t, c)
	assert.Equal(t, ResultError, result.Kind)
	assert.ErrorIs(t, result.Err, boom)
	assert.Equal(t, StateFailed, c.State())
}

func TestControllerProbeTimeout(t *testing.T) {
	probe := ProbeFunc(func(ctx context.Context, _ string) (ProbeOutcome, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	ctrlCfg := quietConfig()
	ctrlCfg.ProbeTimeout = 20 * time.Millisecond
	c := NewController(ctrlCfg)

	cfg := GenerationConfig{MinLength: 1, MaxLength: 2, Alphabet: Alphabet("ab")}
	_, err := c.Start(context.Background(), cfg, probe, false)
	require.NoError(t, err)

	result := waitResult(t, c)
	assert.Equal(t, ResultError, result.Kind)
	assert.ErrorIs(t, result.Err, ErrProbeTimeout)
	assert.Equal(t, StateFailed, c.State())
}

func TestControllerRetriesTransientErrors(t *testing.T) {
	var calls int
	probe := ProbeFunc(func(_ context.Context, _ string) (ProbeOutcome, error) {
		calls++
		if calls <= 2 {
			return 0, &TransientError{Err: errors.New("disk hiccup")}
		}
		return ProbeCorrect, nil
	})

	ctrlCfg := quietConfig()
	ctrlCfg.ProbeRetries = 2
	c := NewController(ctrlCfg)

	cfg := GenerationConfig{MinLength: 1, MaxLength: 1, Alphabet: Alphabet("a")}
	_, err := c.Start(context.Background(), cfg, probe, false)
	require.NoError(t, err)

	result := waitResult(t, c)
	assert.Equal(t, ResultFound, result.Kind)
	assert.Equal(t, "a", result.Password)
	assert.Equal(t, 3, calls)
	// Retries do not inflate the attempt count.
	assert.Equal(t, uint64(1), c.Snapshot().Attempts)
}

func TestControllerTransientErrorsExhaustRetries(t *testing.T) {
	hiccup := errors.New("disk hiccup")
	probe := ProbeFunc(func(_ context.Context, _ string) (ProbeOutcome, error) {
		return 0, &TransientError{Err: hiccup}
	})

	ctrlCfg := quietConfig()
	ctrlCfg.ProbeRetries = 1
	c := NewController(ctrlCfg)

	cfg := GenerationConfig{MinLength: 1, MaxLength: 1, Alphabet: Alphabet("a")}
	_, err := c.Start(context.Background(), cfg, probe, false)
	require.NoError(t, err)

	result := waitResult(t, c)
	assert.Equal(t, ResultError, result.Kind)
	assert.ErrorIs(t, result.Err, hiccup)
}

func TestControllerMemoryPressurePauses(t *testing.T) {
	ctrlCfg := quietConfig()
	ctrlCfg.MemoryCeilingBytes = 1000
	ctrlCfg.Sampler = func() uint64 { return 2000 }
	c := NewController(ctrlCfg)

	cfg := GenerationConfig{MinLength: 1, MaxLength: 6, Alphabet: Alphabet("abcd")}
	_, err := c.Start(context.Background(), cfg, &recordingProbe{}, false)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return c.State() == StatePaused },
		2*time.Second, time.Millisecond)

	snap := c.Snapshot()
	assert.True(t, snap.MemoryPressure)
	assert.Equal(t, uint64(2000), snap.MemoryBytes)

	require.NoError(t, c.Cancel())
	waitResult(t, c)
}

func TestControllerMemoryGuardRearms(t *testing.T) {
	var sample atomic.Uint64
	sample.Store(2000)

	ctrlCfg := quietConfig()
	ctrlCfg.MemoryCeilingBytes = 1000
	ctrlCfg.Sampler = sample.Load
	c := NewController(ctrlCfg)

	cfg := GenerationConfig{MinLength: 1, MaxLength: 8, Alphabet: Alphabet("abcdefgh")}
	_, err := c.Start(context.Background(), cfg, &recordingProbe{}, false)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return c.State() == StatePaused },
		2*time.Second, time.Millisecond)
	assert.True(t, c.Snapshot().MemoryPressure)

	// Operator frees memory and resumes; the pressure flag clears.
	sample.Store(500)
	require.NoError(t, c.Resume())
	require.Eventually(t, func() bool { return c.State() == StateRunning },
		2*time.Second, time.Millisecond)
	assert.False(t, c.Snapshot().MemoryPressure)

	// A later climb over the ceiling trips the guard again.
	sample.Store(3000)
	require.Eventually(t, func() bool { return c.State() == StatePaused },
		2*time.Second, time.Millisecond)
	assert.True(t, c.Snapshot().MemoryPressure)

	require.NoError(t, c.Cancel())
	waitResult(t, c)
}

func TestControllerMemoryPressureCancels(t *testing.T) {
	ctrlCfg := quietConfig()
	ctrlCfg.MemoryCeilingBytes = 1000
	ctrlCfg.Sampler = func() uint64 { return 2000 }
	ctrlCfg.OnMemoryPressure = CancelOnPressure
	c := NewController(ctrlCfg)

	cfg := GenerationConfig{MinLength: 1, MaxLength: 6, Alphabet: Alphabet("abcd")}
	_, err := c.Start(context.Background(), cfg, &recordingProbe{}, false)
	require.NoError(t, err)

	result := waitResult(t, c)
	assert.Equal(t, ResultCancelled, result.Kind)
	assert.ErrorIs(t, result.Err, ErrMemoryCeiling)
	assert.True(t, c.Snapshot().MemoryPressure)
}

func TestControllerSubscribe(t *testing.T) {
	cfg := GenerationConfig{MinLength: 1, MaxLength: 2, Alphabet: Alphabet("abcd")}
	c := NewController(quietConfig())

	ch := c.Subscribe(64)
	_, err := c.Start(context.Background(), cfg, &recordingProbe{}, false)
	require.NoError(t, err)
	waitResult(t, c)

	var last ProgressSnapshot
	var count int
	for snap := range ch {
		// Attempts never go backwards.
		require.GreaterOrEqual(t, snap.Attempts, last.Attempts)
		last = snap
		count++
	}
	require.Greater(t, count, 0, "at least the terminal snapshot is delivered")
	assert.Equal(t, StateExhausted, last.State)
	assert.Equal(t, uint64(4+16), last.Attempts)
}

func TestControllerSubscribeAfterTerminal(t *testing.T) {
	cfg := GenerationConfig{MinLength: 1, MaxLength: 1, Alphabet: Alphabet("a")}
	c := NewController(quietConfig())
	_, err := c.Start(context.Background(), cfg, &recordingProbe{}, false)
	require.NoError(t, err)
	waitResult(t, c)

	ch := c.Subscribe(1)
	_, open := <-ch
	assert.False(t, open, "late subscriptions get a closed channel")
}

func TestControllerResultBeforeFinish(t *testing.T) {
	c := NewController(quietConfig())
	_, ok := c.Result()
	assert.False(t, ok)

	_, err := c.Wait(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}
