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

import "math/big"

// DefaultConfirmationThreshold is the candidate count above which Start
// demands an explicit override before searching. A space this large may
// run for days; the operator has to acknowledge that.
const DefaultConfirmationThreshold uint64 = 100_000_000

// Estimate is the total candidate count of a configuration. Counts grow as
// |alphabet|^length and overflow machine integers almost immediately, so
// bounded estimates are kept as big integers; unbounded configurations
// carry no count at all.
type Estimate struct {
	total *big.Int
}

// Unbounded reports whether the estimate has no finite total.
func (e Estimate) Unbounded() bool { return e.total == nil }

// Total returns a copy of the finite total, or nil when unbounded.
func (e Estimate) Total() *big.Int {
	if e.total == nil {
		return nil
	}
	return new(big.Int).Set(e.total)
}

// Uint64 returns the total clamped to uint64 range. The second return
// value is false when the estimate is unbounded or exceeds 2^64-1.
func (e Estimate) Uint64() (uint64, bool) {
	if e.total == nil || !e.total.IsUint64() {
		return 0, false
	}
	return e.total.Uint64(), true
}

func (e Estimate) String() string {
	if e.total == nil {
		return "unbounded"
	}
	return e.total.String()
}

// EstimateSize computes the total candidate count for cfg: the sum of
// |alphabet|^L for every length L in the configured range. Pure; the
// configuration is assumed valid.
func EstimateSize(cfg GenerationConfig) Estimate {
	if cfg.Unbounded() {
		return Estimate{}
	}
	radix := big.NewInt(int64(cfg.Alphabet.Len()))
	total := new(big.Int)
	power := new(big.Int).Exp(radix, big.NewInt(int64(cfg.MinLength)), nil)
	for l := cfg.MinLength; l <= cfg.MaxLength; l++ {
		total.Add(total, power)
		power = new(big.Int).Mul(power, radix)
	}
	return Estimate{total: total}
}

// RequiresConfirmation reports whether a search over cfg must be
// explicitly acknowledged by the operator before starting: true when the
// estimate is unbounded or strictly exceeds threshold.
func RequiresConfirmation(cfg GenerationConfig, threshold uint64) bool {
	est := EstimateSize(cfg)
	if est.Unbounded() {
		return true
	}
	limit := new(big.Int).SetUint64(threshold)
	return est.total.Cmp(limit) > 0
}
