// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package recovery implements the candidate generation and search control
// engine for PDF password recovery.
//
// # Description
//
// The engine enumerates every string over a configured alphabet within a
// length range, in a fixed deterministic order, and drives an external
// decryption probe over the sequence. Candidates are generated lazily; the
// engine never materializes the candidate space, so configurations with
// astronomically large (or unbounded) spaces run in constant memory.
//
// The major pieces are:
//
//   - BuildAlphabet: assembles the character set from category flags
//   - Enumerator: lazy, resumable candidate sequence with a compact Cursor
//   - EstimateSize / RequiresConfirmation: upfront feasibility checks
//   - Controller: single-worker search loop with pause/resume/cancel,
//     progress snapshots, and memory-pressure protection
//
// # Thread Safety
//
// Enumerator and the pure functions are not safe for concurrent use; the
// Controller owns the live enumerator and is safe to control from any
// goroutine.
package recovery

// Character categories available to BuildAlphabet.
const (
	LowercaseCharacters = "abcdefghijklmnopqrstuvwxyz"
	UppercaseCharacters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	DigitCharacters     = "0123456789"
	SpecialCharacters   = "!@#$%^&*"
)

// Alphabet is an ordered set of distinct candidate characters. Position in
// the slice is the character's digit value during enumeration.
type Alphabet []rune

// Len returns the radix of the alphabet.
func (a Alphabet) Len() int { return len(a) }

// String returns the characters in enumeration order.
func (a Alphabet) String() string { return string([]rune(a)) }

// AlphabetOptions selects which character categories contribute to the
// alphabet. Custom characters are appended after the selected categories.
type AlphabetOptions struct {
	Lowercase bool
	Uppercase bool
	Digits    bool
	Special   bool

	// Custom is an optional explicit character list. Duplicates, both
	// internal and against selected categories, are dropped.
	Custom string
}

// BuildAlphabet assembles the effective character set from opts.
//
// The result preserves selection order (lowercase, uppercase, digits,
// special, then custom) with the first occurrence of each character
// winning. An empty result is an ErrInvalidConfiguration: the caller must
// select at least one category or supply custom characters.
func BuildAlphabet(opts AlphabetOptions) (Alphabet, error) {
	var pool []rune
	if opts.Lowercase {
		pool = append(pool, []rune(LowercaseCharacters)...)
	}
	if opts.Uppercase {
		pool = append(pool, []rune(UppercaseCharacters)...)
	}
	if opts.Digits {
		pool = append(pool, []rune(DigitCharacters)...)
	}
	if opts.Special {
		pool = append(pool, []rune(SpecialCharacters)...)
	}
	pool = append(pool, []rune(opts.Custom)...)

	seen := make(map[rune]struct{}, len(pool))
	alphabet := make(Alphabet, 0, len(pool))
	for _, r := range pool {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		alphabet = append(alphabet, r)
	}

	if len(alphabet) == 0 {
		return nil, ErrInvalidConfiguration
	}
	return alphabet, nil
}
