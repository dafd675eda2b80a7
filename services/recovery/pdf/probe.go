// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pdf implements the decryption probe for password-protected
// PDF documents.
//
// # Description
//
// DocumentProbe adapts seehuhn.de/go/pdf to the recovery.Probe
// interface. The document is read into memory once at construction;
// each Test call decrypts the in-memory copy with one candidate
// password, so probing never touches the filesystem and the source
// file is never modified.
//
// # Thread Safety
//
// DocumentProbe is immutable after construction and safe for
// concurrent use, although the search controller only ever calls
// Test from a single worker goroutine.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	pdflib "seehuhn.de/go/pdf"

	"github.com/AleutianAI/pdfrecover/services/recovery"
)

var (
	// ErrNotEncrypted indicates the document opens without a password,
	// so there is nothing to recover.
	ErrNotEncrypted = errors.New("document is not password protected")
)

// DocumentProbe tests candidate passwords against one PDF document.
type DocumentProbe struct {
	path string
	data []byte
}

// NewDocumentProbe reads the document at path and verifies that it is
// a well-formed, password-protected PDF.
//
// A document that opens without a password fails with ErrNotEncrypted.
// A document that cannot be parsed at all fails with the underlying
// parse error; there is no point starting a search against it.
func NewDocumentProbe(path string) (*DocumentProbe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	p := &DocumentProbe{path: path, data: data}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Path returns the location of the document under recovery.
func (p *DocumentProbe) Path() string {
	return p.path
}

// validate reads the document declining to supply any password. The
// security handler tries the empty password on its own first, so a
// clean read means the document is readable without recovery.
//
// Read, not NewReader: NewReader only parses the cross-reference table
// and defers decryption, so it succeeds on encrypted documents without
// ever consulting the password. Read resolves every object, which
// forces the security handler to authenticate.
func (p *DocumentProbe) validate() error {
	opt := &pdflib.ReaderOptions{
		ReadPassword: func(_ []byte, _ int) string { return "" },
	}
	doc, err := pdflib.Read(bytes.NewReader(p.data), opt)
	if err == nil {
		_ = doc.Close()
		return fmt.Errorf("%s: %w", p.path, ErrNotEncrypted)
	}

	var authErr *pdflib.AuthenticationError
	if errors.As(err, &authErr) {
		// Exactly what we want: a valid document demanding a password.
		return nil
	}
	return fmt.Errorf("opening %s: %w", p.path, err)
}

// Test attempts to decrypt the document with the candidate password.
//
// A wrong password is a normal outcome, not an error. Structural
// failures (truncated file, damaged cross-reference table) are
// returned as errors and end the search.
func (p *DocumentProbe) Test(ctx context.Context, candidate string) (recovery.ProbeOutcome, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	opt := &pdflib.ReaderOptions{
		ReadPassword: func(_ []byte, try int) string {
			// Supply the candidate once; returning "" afterwards aborts
			// the authentication attempt instead of looping forever.
			if try == 0 {
				return candidate
			}
			return ""
		},
	}
	// Read forces authentication by decrypting every object; see validate.
	doc, err := pdflib.Read(bytes.NewReader(p.data), opt)
	if err != nil {
		var authErr *pdflib.AuthenticationError
		if errors.As(err, &authErr) {
			return recovery.ProbeWrongPassword, nil
		}
		return 0, fmt.Errorf("opening %s: %w", p.path, err)
	}
	_ = doc.Close()
	return recovery.ProbeCorrect, nil
}

var _ recovery.Probe = (*DocumentProbe)(nil)
