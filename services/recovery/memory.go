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

import "runtime"

// DefaultMemoryCeilingBytes is the default protective ceiling (1 GiB).
// Operators can raise or lower it through configuration.
const DefaultMemoryCeilingBytes uint64 = 1 << 30

// MemorySampler reports the current memory footprint of the process in
// bytes. Sampling happens on the worker's poll cadence, never from a
// separate timer, so a slow sampler slows the search rather than racing it.
type MemorySampler func() uint64

// RuntimeMemorySampler samples the Go heap. Candidate generation is
// streaming, so a growing heap here almost always means an observer is
// accumulating snapshots or candidates; the guard exists to pause before
// that becomes an OOM kill.
func RuntimeMemorySampler() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc
}
