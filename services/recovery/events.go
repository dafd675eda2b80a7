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
	"time"
)

// SearchState is the lifecycle state of a search session. Exactly one
// session is live per Controller; every transition is made by the single
// control loop, so observers always see a consistent ordering.
type SearchState int

const (
	// StateIdle: no session has been started.
	StateIdle SearchState = iota

	// StateRunning: the worker is testing candidates.
	StateRunning

	// StatePaused: the worker is blocked at a candidate boundary with its
	// cursor captured; Resume continues exactly where it stopped.
	StatePaused

	// StateCancelled: terminal; the caller (or the memory guard) aborted
	// the session.
	StateCancelled

	// StateSucceeded: terminal; the probe confirmed a candidate.
	StateSucceeded

	// StateExhausted: terminal; the bounded space was fully searched
	// without success.
	StateExhausted

	// StateFailed: terminal; the probe reported a fatal, non-password
	// error (or timed out).
	StateFailed
)

// Terminal reports whether the state ends the session.
func (s SearchState) Terminal() bool {
	switch s {
	case StateCancelled, StateSucceeded, StateExhausted, StateFailed:
		return true
	}
	return false
}

func (s SearchState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCancelled:
		return "cancelled"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ProgressSnapshot is a read-only view of a running session, emitted after
// every batch of attempts and on every state transition. Observers receive
// copies and must not feed anything back.
type ProgressSnapshot struct {
	// SessionID identifies the session the snapshot belongs to.
	SessionID string

	// State at the time the snapshot was taken.
	State SearchState

	// Attempts is the number of candidates tested so far. It increases by
	// exactly one per tested candidate, with no duplicates and no gaps.
	Attempts uint64

	// CurrentCandidate is the most recently tested candidate.
	CurrentCandidate string

	// Elapsed is the wall time spent in the session, excluding time spent
	// paused.
	Elapsed time.Duration

	// EstimatedTotal is the size estimate for the session's configuration.
	EstimatedTotal Estimate

	// MemoryBytes is the most recent process memory sample.
	MemoryBytes uint64

	// MemoryPressure is set when the memory guard has tripped; the State
	// field shows which protective action was taken.
	MemoryPressure bool
}

// ResultKind classifies the terminal outcome of a session.
type ResultKind int

const (
	// ResultFound: the password was recovered.
	ResultFound ResultKind = iota

	// ResultNotFound: the bounded space was exhausted without success.
	ResultNotFound

	// ResultCancelled: the session was aborted before completion.
	ResultCancelled

	// ResultError: a fatal probe error ended the session.
	ResultError
)

func (k ResultKind) String() string {
	switch k {
	case ResultFound:
		return "found"
	case ResultNotFound:
		return "not found"
	case ResultCancelled:
		return "cancelled"
	case ResultError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the terminal value of a search session.
type Result struct {
	Kind ResultKind

	// Password is set only for ResultFound.
	Password string

	// Err is set for ResultError, and for a ResultCancelled caused by the
	// memory guard (ErrMemoryCeiling).
	Err error
}
