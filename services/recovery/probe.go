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

import "context"

// ProbeOutcome is the per-candidate verdict of a decryption probe.
type ProbeOutcome int

const (
	// ProbeWrongPassword means the candidate did not decrypt the
	// document. This is the normal negative outcome, not an error; the
	// search simply advances.
	ProbeWrongPassword ProbeOutcome = iota

	// ProbeCorrect means the candidate decrypted the document.
	ProbeCorrect
)

// Probe tests one candidate password against one locked document.
//
// # Description
//
// Probe is the engine's only window into the document format. A call must
// be cheaply repeatable per candidate and honor ctx cancellation, since
// the controller bounds every call with a timeout. A non-nil error is a
// fatal, non-password condition (unreadable document, malformed file);
// wrap it in *TransientError to request a bounded retry instead of a
// terminal failure.
//
// # Thread Safety
//
// The controller calls Test from a single worker goroutine; Probe
// implementations do not need to support concurrent calls.
type Probe interface {
	Test(ctx context.Context, candidate string) (ProbeOutcome, error)
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func(ctx context.Context, candidate string) (ProbeOutcome, error)

func (f ProbeFunc) Test(ctx context.Context, candidate string) (ProbeOutcome, error) {
	return f(ctx, candidate)
}
