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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAlphabet(t *testing.T) {
	tests := []struct {
		name string
		opts AlphabetOptions
		want string
	}{
		{
			name: "lowercase only",
			opts: AlphabetOptions{Lowercase: true},
			want: "abcdefghijklmnopqrstuvwxyz",
		},
		{
			name: "digits only",
			opts: AlphabetOptions{Digits: true},
			want: "0123456789",
		},
		{
			name: "special only",
			opts: AlphabetOptions{Special: true},
			want: "!@#$%^&*",
		},
		{
			name: "categories keep selection order",
			opts: AlphabetOptions{Lowercase: true, Digits: true},
			want: "abcdefghijklmnopqrstuvwxyz0123456789",
		},
		{
			name: "custom only",
			opts: AlphabetOptions{Custom: "xyz"},
			want: "xyz",
		},
		{
			name: "custom appended after categories",
			opts: AlphabetOptions{Digits: true, Custom: "ab"},
			want: "0123456789ab",
		},
		{
			name: "custom duplicates against categories dropped",
			opts: AlphabetOptions{Digits: true, Custom: "a0b1"},
			want: "0123456789ab",
		},
		{
			name: "duplicates inside custom dropped",
			opts: AlphabetOptions{Custom: "aabbcc"},
			want: "abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildAlphabet(tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestBuildAlphabetEmpty(t *testing.T) {
	_, err := BuildAlphabet(AlphabetOptions{})
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestGenerationConfigValidate(t *testing.T) {
	abc := Alphabet("abc")

	tests := []struct {
		name    string
		cfg     GenerationConfig
		wantErr bool
	}{
		{"valid bounded", GenerationConfig{MinLength: 1, MaxLength: 3, Alphabet: abc}, false},
		{"valid single band", GenerationConfig{MinLength: 4, MaxLength: 4, Alphabet: abc}, false},
		{"valid unbounded", GenerationConfig{MinLength: 1, MaxLength: NoMaxLength, Alphabet: abc}, false},
		{"empty alphabet", GenerationConfig{MinLength: 1, MaxLength: 2}, true},
		{"min below one", GenerationConfig{MinLength: 0, MaxLength: 2, Alphabet: abc}, true},
		{"max below min", GenerationConfig{MinLength: 3, MaxLength: 2, Alphabet: abc}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfiguration)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
