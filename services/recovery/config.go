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

// NoMaxLength marks a configuration without an upper length bound. Such a
// search never exhausts on its own; the caller must provide a cancellation
// path.
const NoMaxLength = 0

// GenerationConfig describes one candidate space: an alphabet and a length
// range. It is immutable once a search starts.
type GenerationConfig struct {
	// MinLength is the shortest candidate length. Must be >= 1.
	MinLength int

	// MaxLength is the longest candidate length, or NoMaxLength for an
	// unbounded search. When bounded it must be >= MinLength.
	MaxLength int

	// Alphabet is the ordered character set, usually from BuildAlphabet.
	Alphabet Alphabet
}

// Unbounded reports whether the configuration has no upper length bound.
func (c GenerationConfig) Unbounded() bool { return c.MaxLength == NoMaxLength }

// Validate checks the configuration invariants: a non-empty alphabet,
// MinLength >= 1, and MinLength <= MaxLength when bounded. All violations
// wrap ErrInvalidConfiguration.
func (c GenerationConfig) Validate() error {
	if len(c.Alphabet) == 0 {
		return fmt.Errorf("%w: empty alphabet", ErrInvalidConfiguration)
	}
	if c.MinLength < 1 {
		return fmt.Errorf("%w: min length %d, need >= 1", ErrInvalidConfiguration, c.MinLength)
	}
	if !c.Unbounded() && c.MaxLength < c.MinLength {
		return fmt.Errorf("%w: max length %d < min length %d",
			ErrInvalidConfiguration, c.MaxLength, c.MinLength)
	}
	return nil
}
