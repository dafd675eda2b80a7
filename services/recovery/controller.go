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
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// MemoryPressureAction selects the protective action when the memory
// ceiling is exceeded.
type MemoryPressureAction int

const (
	// PauseOnPressure parks the search at the next candidate boundary;
	// the operator can free memory and resume.
	PauseOnPressure MemoryPressureAction = iota

	// CancelOnPressure aborts the session with ErrMemoryCeiling.
	CancelOnPressure
)

// ControllerConfig tunes a Controller. The zero value is usable; every
// field has a default.
type ControllerConfig struct {
	// BatchSize is the number of candidates tested between memory checks
	// and batch progress snapshots. Control flags are polled every
	// candidate regardless. Default: 100.
	BatchSize int

	// ProbeTimeout bounds a single probe call. A timeout is a terminal
	// failure with ErrProbeTimeout. Default: 30s.
	ProbeTimeout time.Duration

	// ProbeRetries is how many times a transient probe error is retried
	// before it becomes terminal. Zero means no retries.
	ProbeRetries int

	// MemoryCeilingBytes triggers the protective action when a sample
	// exceeds it. Zero disables the guard.
	MemoryCeilingBytes uint64

	// OnMemoryPressure picks pause or cancel. Default: PauseOnPressure.
	OnMemoryPressure MemoryPressureAction

	// ConfirmationThreshold is the estimate above which Start requires an
	// explicit override. Default: DefaultConfirmationThreshold.
	ConfirmationThreshold uint64

	// Sampler supplies memory usage readings; injectable for tests.
	// Default: RuntimeMemorySampler.
	Sampler MemorySampler

	// SnapshotsPerSecond caps batch progress emission. State transitions
	// always emit. Default: 20.
	SnapshotsPerSecond float64

	// Logger for session lifecycle logs. Default: slog.Default().
	Logger *slog.Logger
}

func (c ControllerConfig) withDefaults() ControllerConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 30 * time.Second
	}
	if c.ProbeRetries < 0 {
		c.ProbeRetries = 0
	}
	if c.ConfirmationThreshold == 0 {
		c.ConfirmationThreshold = DefaultConfirmationThreshold
	}
	if c.Sampler == nil {
		c.Sampler = RuntimeMemorySampler
	}
	if c.SnapshotsPerSecond <= 0 {
		c.SnapshotsPerSecond = 20
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// session is the controller-owned state of one search. The worker
// goroutine is the only writer of enumeration state; control flags are
// flipped under the controller mutex and polled by the worker at candidate
// boundaries, so candidates are never abandoned mid-test.
type session struct {
	id    string
	gen   GenerationConfig
	est   Estimate
	probe Probe
	enum  *Enumerator

	attempts uint64
	current  string

	started    time.Time
	pausedFor  time.Duration
	pauseStart time.Time

	memBytes    uint64
	memPressure bool

	pauseReq  bool
	cancelReq bool
	cancelErr error

	result Result
	done   chan struct{}
}

// Controller drives the enumerator against a decryption probe on a single
// dedicated worker goroutine.
//
// # Description
//
// Controller implements the search state machine: Idle -> Running ->
// {Paused <-> Running, Cancelled, Succeeded, Exhausted, Failed}. Control
// calls (Pause, Resume, Cancel) and observers (Subscribe, Snapshot) are
// safe from any goroutine; the worker cooperatively polls control state
// between candidates, so pause and cancel take effect at clean boundaries
// and the enumeration cursor is always exact.
//
// Only one session is live at a time; Start during a Running or Paused
// session fails with ErrSessionActive. After a terminal state a new
// session may be started on the same Controller.
type Controller struct {
	cfg     ControllerConfig
	metrics controllerMetrics

	mu      sync.Mutex
	cond    *sync.Cond
	state   SearchState
	session *session
	subs    []chan ProgressSnapshot
	limiter *rate.Limiter
}

// NewController returns an idle controller.
func NewController(cfg ControllerConfig) *Controller {
	cfg = cfg.withDefaults()
	c := &Controller{
		cfg:     cfg,
		state:   StateIdle,
		limiter: rate.NewLimiter(rate.Limit(cfg.SnapshotsPerSecond), 1),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Start begins a new search session and returns its ID.
//
// The configuration is validated first (ErrInvalidConfiguration), then the
// size gate is enforced: if the estimate exceeds the confirmation
// threshold or is unbounded and overrideSizeWarning is false, Start fails
// with ErrConfirmationRequired and no work is done. ctx cancellation
// cancels the session as if Cancel had been called.
func (c *Controller) Start(ctx context.Context, gen GenerationConfig, probe Probe, overrideSizeWarning bool) (string, error) {
	if probe == nil {
		return "", fmt.Errorf("%w: nil probe", ErrInvalidConfiguration)
	}
	if err := gen.Validate(); err != nil {
		return "", err
	}
	if !overrideSizeWarning && RequiresConfirmation(gen, c.cfg.ConfirmationThreshold) {
		return "", fmt.Errorf("%w: estimated %s candidates (threshold %d)",
			ErrConfirmationRequired, EstimateSize(gen), c.cfg.ConfirmationThreshold)
	}
	enum, err := NewEnumerator(gen)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRunning || c.state == StatePaused {
		return "", ErrSessionActive
	}

	s := &session{
		id:      uuid.NewString(),
		gen:     gen,
		est:     EstimateSize(gen),
		probe:   probe,
		enum:    enum,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	c.session = s
	c.state = StateRunning

	c.metrics.init(c.cfg.Logger)
	if c.metrics.sessions != nil {
		c.metrics.sessions.Add(ctx, 1)
	}
	c.cfg.Logger.Info("search session started",
		"session_id", s.id,
		"alphabet_size", gen.Alphabet.Len(),
		"min_length", gen.MinLength,
		"max_length", gen.MaxLength,
		"estimated_total", s.est.String(),
	)

	go c.watchContext(ctx, s)
	go c.run(ctx, s)
	return s.id, nil
}

// Pause requests a pause. It returns once the request is registered; the
// worker parks at the next candidate boundary with its cursor captured.
// Pausing an already paused session is a no-op.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.state.Terminal() || c.state == StateIdle {
		return ErrNoSession
	}
	c.session.pauseReq = true
	return nil
}

// Resume continues a paused session exactly where it stopped: no candidate
// is retested and none is skipped. Resuming a running session is a no-op.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.state.Terminal() || c.state == StateIdle {
		return ErrNoSession
	}
	c.session.pauseReq = false
	// The operator acted on the pressure warning; clear the latch so the
	// guard can trip again if usage climbs back over the ceiling.
	c.session.memPressure = false
	c.cond.Broadcast()
	return nil
}

// Cancel aborts the live session. The worker finishes at the next
// candidate boundary with Result Cancelled; an in-flight probe call is
// never force-terminated, only its context is cancelled.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelLocked(nil)
}

func (c *Controller) cancelLocked(cause error) error {
	if c.session == nil || c.state.Terminal() || c.state == StateIdle {
		return ErrNoSession
	}
	c.session.cancelReq = true
	if c.session.cancelErr == nil {
		c.session.cancelErr = cause
	}
	c.cond.Broadcast()
	return nil
}

// State returns the current lifecycle state.
func (c *Controller) State() SearchState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a point-in-time progress view of the current session.
func (c *Controller) Snapshot() ProgressSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Cursor returns the enumeration position of the last tested candidate.
// It is only meaningful while the session is paused (the worker is parked
// at an exact boundary) and at least one candidate has been tested.
func (c *Controller) Cursor() (Cursor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.state == StateIdle {
		return Cursor{}, ErrNoSession
	}
	if c.state != StatePaused {
		return Cursor{}, fmt.Errorf("cursor only available while paused, state is %s", c.state)
	}
	if c.session.attempts == 0 {
		return Cursor{}, errors.New("no candidates tested yet")
	}
	return c.session.enum.Cursor(), nil
}

// Subscribe registers a progress observer. The returned channel receives
// snapshot copies and is closed when the session reaches a terminal state.
// Slow consumers miss intermediate snapshots rather than slowing the
// search: sends never block.
func (c *Controller) Subscribe(buffer int) <-chan ProgressSnapshot {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan ProgressSnapshot, buffer)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Terminal() {
		close(ch)
		return ch
	}
	c.subs = append(c.subs, ch)
	return ch
}

// Result returns the terminal result of the most recent session. The
// second return value is false while no session has finished.
func (c *Controller) Result() (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || !c.state.Terminal() {
		return Result{}, false
	}
	return c.session.result, true
}

// Wait blocks until the live session reaches a terminal state or ctx is
// done, and returns the terminal result.
func (c *Controller) Wait(ctx context.Context) (Result, error) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return Result{}, ErrNoSession
	}
	select {
	case <-s.done:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return s.result, nil
}

func (c *Controller) watchContext(ctx context.Context, s *session) {
	select {
	case <-ctx.Done():
		c.mu.Lock()
		_ = c.cancelLocked(ctx.Err())
		c.mu.Unlock()
	case <-s.done:
	}
}

// run is the single worker loop. All state transitions happen here, so
// every transition is attributable to one control point.
func (c *Controller) run(ctx context.Context, s *session) {
	defer close(s.done)

	for {
		if stop := c.pollControl(s); stop {
			_, cause := c.cancelState(s)
			c.finish(s, StateCancelled, Result{Kind: ResultCancelled, Err: cause})
			return
		}

		candidate, ok := s.enum.Next()
		if !ok {
			c.finish(s, StateExhausted, Result{Kind: ResultNotFound})
			return
		}

		outcome, err := c.testCandidate(ctx, s, candidate)

		c.mu.Lock()
		s.attempts++
		s.current = candidate
		c.mu.Unlock()
		if c.metrics.attempts != nil {
			c.metrics.attempts.Add(ctx, 1)
		}

		if err != nil {
			if errors.Is(err, context.Canceled) {
				// The worker can observe the probe's context error before
				// the watcher goroutine registers the cancellation, so a
				// done parent ctx counts as a cancel request too.
				requested, cause := c.cancelState(s)
				if ctx.Err() != nil {
					requested = true
					if cause == nil {
						cause = ctx.Err()
					}
				}
				if requested {
					c.finish(s, StateCancelled, Result{Kind: ResultCancelled, Err: cause})
					return
				}
			}
			c.finish(s, StateFailed, Result{Kind: ResultError, Err: err})
			return
		}
		if outcome == ProbeCorrect {
			c.finish(s, StateSucceeded, Result{Kind: ResultFound, Password: candidate})
			return
		}

		if s.attempts%uint64(c.cfg.BatchSize) == 0 {
			c.checkMemory(ctx, s)
			c.emitProgress(s, false)
		}
	}
}

// pollControl handles pause and cancel requests at a candidate boundary.
// It blocks while the session is paused and returns true when the session
// must stop.
func (c *Controller) pollControl(s *session) (stop bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if s.cancelReq {
			return true
		}
		if !s.pauseReq {
			if c.state == StatePaused {
				s.pausedFor += time.Since(s.pauseStart)
				c.state = StateRunning
				c.cfg.Logger.Info("search resumed",
					"session_id", s.id, "attempts", s.attempts)
				c.emitLocked(c.snapshotLocked())
			}
			return false
		}
		if c.state != StatePaused {
			c.state = StatePaused
			s.pauseStart = time.Now()
			c.cfg.Logger.Info("search paused",
				"session_id", s.id,
				"attempts", s.attempts,
				"current", s.current,
			)
			c.emitLocked(c.snapshotLocked())
		}
		c.cond.Wait()
	}
}

// testCandidate runs one probe call, bounded by the configured timeout,
// retrying transient failures a bounded number of times.
func (c *Controller) testCandidate(ctx context.Context, s *session, candidate string) (ProbeOutcome, error) {
	for attempt := 0; ; attempt++ {
		probeCtx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
		start := time.Now()
		outcome, err := s.probe.Test(probeCtx, candidate)
		elapsed := time.Since(start)
		timedOut := probeCtx.Err() == context.DeadlineExceeded
		cancel()

		if c.metrics.probeDuration != nil {
			c.metrics.probeDuration.Record(ctx, elapsed.Seconds())
		}

		if err == nil {
			return outcome, nil
		}
		if timedOut {
			return 0, fmt.Errorf("%w after %s", ErrProbeTimeout, c.cfg.ProbeTimeout)
		}
		if IsTransient(err) && attempt < c.cfg.ProbeRetries {
			c.cfg.Logger.Warn("transient probe error, retrying",
				"session_id", s.id,
				"attempt", attempt+1,
				"max_retries", c.cfg.ProbeRetries,
				"error", err,
			)
			continue
		}
		return 0, err
	}
}

func (c *Controller) cancelState(s *session) (requested bool, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return s.cancelReq, s.cancelErr
}

// checkMemory samples process memory on the batch cadence and triggers
// the protective action above the ceiling. It never lets the host run out
// of memory silently: the guard acts before allocation fails.
func (c *Controller) checkMemory(ctx context.Context, s *session) {
	if c.cfg.MemoryCeilingBytes == 0 {
		return
	}
	bytes := c.cfg.Sampler()
	if c.metrics.memoryBytes != nil {
		c.metrics.memoryBytes.Record(ctx, int64(bytes))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	s.memBytes = bytes
	if bytes <= c.cfg.MemoryCeilingBytes {
		// Re-arm once usage drops back under the ceiling.
		s.memPressure = false
		return
	}
	if s.memPressure {
		return
	}
	s.memPressure = true
	c.cfg.Logger.Warn("memory ceiling exceeded",
		"session_id", s.id,
		"memory_bytes", bytes,
		"ceiling_bytes", c.cfg.MemoryCeilingBytes,
		"action", c.cfg.OnMemoryPressure,
	)
	if c.cfg.OnMemoryPressure == CancelOnPressure {
		_ = c.cancelLocked(ErrMemoryCeiling)
		return
	}
	s.pauseReq = true
}

func (c *Controller) finish(s *session, state SearchState, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StatePaused {
		s.pausedFor += time.Since(s.pauseStart)
	}
	c.state = state
	s.result = result
	c.emitLocked(c.snapshotLocked())
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil

	attrs := []any{
		"session_id", s.id,
		"state", state.String(),
		"attempts", s.attempts,
		"elapsed", c.elapsedLocked(s).Round(time.Millisecond),
	}
	if result.Err != nil {
		attrs = append(attrs, "error", result.Err)
	}
	c.cfg.Logger.Info("search session finished", attrs...)
}

// emitProgress sends a batch snapshot, rate limited so emission overhead
// stays negligible next to probe calls.
func (c *Controller) emitProgress(s *session, transition bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !transition && !c.limiter.Allow() {
		return
	}
	c.emitLocked(c.snapshotLocked())
}

func (c *Controller) emitLocked(snap ProgressSnapshot) {
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (c *Controller) snapshotLocked() ProgressSnapshot {
	s := c.session
	if s == nil {
		return ProgressSnapshot{State: c.state}
	}
	return ProgressSnapshot{
		SessionID:        s.id,
		State:            c.state,
		Attempts:         s.attempts,
		CurrentCandidate: s.current,
		Elapsed:          c.elapsedLocked(s),
		EstimatedTotal:   s.est,
		MemoryBytes:      s.memBytes,
		MemoryPressure:   s.memPressure,
	}
}

func (c *Controller) elapsedLocked(s *session) time.Duration {
	elapsed := time.Since(s.started) - s.pausedFor
	if c.state == StatePaused {
		elapsed -= time.Since(s.pauseStart)
	}
	return elapsed
}

func (a MemoryPressureAction) String() string {
	if a == CancelOnPressure {
		return "cancel"
	}
	return "pause"
}
