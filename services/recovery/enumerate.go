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

import "fmt"

// Cursor is the compact resume position of an Enumerator: the length band
// and the digit vector of the last emitted candidate. Digits are charset
// positions, most significant first, so the vector maps one-to-one onto the
// candidate string.
type Cursor struct {
	Length int   `json:"length"`
	Digits []int `json:"digits"`
}

// Candidate reconstructs the candidate string the cursor points at.
func (c Cursor) Candidate(alphabet Alphabet) string {
	out := make([]rune, len(c.Digits))
	for i, d := range c.Digits {
		out[i] = alphabet[d]
	}
	return string(out)
}

// Enumerator produces every string over the configured alphabet, length
// ascending, lexicographic (in alphabet order) within each length. The
// sequence is generated lazily by incrementing a base-|alphabet| counter,
// so each step is O(1) amortized and no candidate collection is ever built.
//
// Enumerator is not safe for concurrent use.
type Enumerator struct {
	cfg     GenerationConfig
	digits  []int
	started bool
	done    bool
}

// NewEnumerator returns an enumerator positioned before the first
// candidate of cfg.
func NewEnumerator(cfg GenerationConfig) (*Enumerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Enumerator{cfg: cfg}, nil
}

// ResumeEnumerator returns an enumerator positioned exactly after cur, so
// the next call to Next emits the candidate following cur's. The remaining
// sequence is identical to an uninterrupted run; nothing is repeated and
// nothing is skipped.
func ResumeEnumerator(cfg GenerationConfig, cur Cursor) (*Enumerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cur.Length < cfg.MinLength || (!cfg.Unbounded() && cur.Length > cfg.MaxLength) {
		return nil, fmt.Errorf("%w: cursor length %d outside [%d,%d]",
			ErrInvalidConfiguration, cur.Length, cfg.MinLength, cfg.MaxLength)
	}
	if len(cur.Digits) != cur.Length {
		return nil, fmt.Errorf("%w: cursor has %d digits for length %d",
			ErrInvalidConfiguration, len(cur.Digits), cur.Length)
	}
	digits := make([]int, len(cur.Digits))
	for i, d := range cur.Digits {
		if d < 0 || d >= cfg.Alphabet.Len() {
			return nil, fmt.Errorf("%w: cursor digit %d outside alphabet of size %d",
				ErrInvalidConfiguration, d, cfg.Alphabet.Len())
		}
		digits[i] = d
	}
	return &Enumerator{cfg: cfg, digits: digits, started: true}, nil
}

// Next returns the next candidate. The second return value is false once
// the space is exhausted; unbounded configurations never exhaust.
func (e *Enumerator) Next() (string, bool) {
	if e.done {
		return "", false
	}
	if !e.started {
		e.digits = make([]int, e.cfg.MinLength)
		e.started = true
		return e.candidate(), true
	}
	if !e.increment() {
		e.done = true
		return "", false
	}
	return e.candidate(), true
}

// Cursor returns the position of the last candidate emitted by Next. It
// must not be called before the first candidate or after exhaustion.
func (e *Enumerator) Cursor() Cursor {
	digits := make([]int, len(e.digits))
	copy(digits, e.digits)
	return Cursor{Length: len(digits), Digits: digits}
}

// increment advances the digit vector by one, carrying from the least
// significant (rightmost) position. A carry out of the most significant
// digit rolls over into the next length band.
func (e *Enumerator) increment() bool {
	radix := e.cfg.Alphabet.Len()
	for i := len(e.digits) - 1; i >= 0; i-- {
		e.digits[i]++
		if e.digits[i] < radix {
			return true
		}
		e.digits[i] = 0
	}
	next := len(e.digits) + 1
	if !e.cfg.Unbounded() && next > e.cfg.MaxLength {
		return false
	}
	e.digits = make([]int, next)
	return true
}

func (e *Enumerator) candidate() string {
	out := make([]rune, len(e.digits))
	for i, d := range e.digits {
		out[i] = e.cfg.Alphabet[d]
	}
	return string(out)
}
