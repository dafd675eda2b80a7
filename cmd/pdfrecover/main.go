// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command pdfrecover recovers lost passwords of encrypted PDF
// documents by exhaustive candidate search.
//
// Usage:
//
//	# Search digits-only passwords of length 4 to 6
//	pdfrecover run --digits --min 4 --max 6 invoice.pdf
//
//	# Lowercase plus a few known characters, no upper bound
//	pdfrecover run --lowercase --charset "_-" --no-limit notes.pdf
//
//	# Check the search space size before committing
//	pdfrecover estimate --lowercase --digits --max 8
//
// The run command shows an interactive view on a terminal: press p to
// pause, r to resume, c to cancel. With --no-tui (or when output is
// redirected) progress goes to the log instead.
//
// This tool is for recovering access to documents you own or are
// authorized to unlock.
package main

import "os"

// exitCode is set by the subcommands: 0 password found, 1 search
// space exhausted, 2 cancelled, 3 error.
var exitCode int

func main() {
	if err := rootCmd.Execute(); err != nil && exitCode == 0 {
		exitCode = 3
	}
	os.Exit(exitCode)
}
