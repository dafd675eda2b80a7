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

import "errors"

// Sentinel errors for search sessions.
var (
	// ErrInvalidConfiguration is returned when the alphabet is empty or the
	// length bounds are inconsistent. Rejected before any work starts.
	ErrInvalidConfiguration = errors.New("invalid search configuration")

	// ErrConfirmationRequired is returned by Start when the estimated
	// candidate count exceeds the confirmation threshold (or is unbounded)
	// and the caller did not pass an explicit override. It is a blocking
	// precondition, not a failure of the search itself.
	ErrConfirmationRequired = errors.New("search size requires explicit confirmation")

	// ErrSessionActive is returned when Start is called while another
	// session is Running or Paused.
	ErrSessionActive = errors.New("a search session is already active")

	// ErrNoSession is returned by control calls when no session is live.
	ErrNoSession = errors.New("no active search session")

	// ErrProbeTimeout is returned inside a Failed result when a single
	// probe call exceeded the configured timeout.
	ErrProbeTimeout = errors.New("probe call timed out")

	// ErrMemoryCeiling is attached to a Cancelled result when the memory
	// guard was configured to cancel and the ceiling was exceeded.
	ErrMemoryCeiling = errors.New("memory ceiling exceeded")
)

// TransientError marks a probe failure as retryable. The controller retries
// a bounded number of times before surfacing the error as terminal.
//
// The probe implementation decides which failures are transient; everything
// else is fatal on first occurrence.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient probe error: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is marked retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
