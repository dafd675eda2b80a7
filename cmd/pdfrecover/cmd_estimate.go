// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/pdfrecover/services/recovery"
)

func runEstimate(_ *cobra.Command, _ []string) error {
	gen, err := generationFromFlags()
	if err != nil {
		exitCode = 3
		return err
	}

	est := recovery.EstimateSize(gen)

	fmt.Printf("alphabet size: %d\n", gen.Alphabet.Len())
	if gen.Unbounded() {
		fmt.Printf("lengths:       %d and up\n", gen.MinLength)
		fmt.Println("candidates:    unbounded")
	} else {
		fmt.Printf("lengths:       %d to %d\n", gen.MinLength, gen.MaxLength)
		fmt.Printf("candidates:    %s\n", est)
	}

	if recovery.RequiresConfirmation(gen, recovery.DefaultConfirmationThreshold) {
		fmt.Println("\nThis search is large enough that 'run' will ask for confirmation.")
	}
	return nil
}
