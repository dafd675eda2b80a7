// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tui

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/AleutianAI/pdfrecover/services/recovery"
)

// ConfirmLargeSearch asks the operator to accept a search whose size
// exceeds the confirmation threshold. It returns true when the search
// should proceed.
//
// The prompt states the estimated candidate count so the decision is
// an informed one; an unbounded search is named as such instead of
// showing a number.
func ConfirmLargeSearch(est recovery.Estimate) (bool, error) {
	var description string
	if est.Unbounded() {
		description = "No maximum length is set, so this search never finishes on its own. " +
			"You can pause or cancel it at any time."
	} else {
		description = fmt.Sprintf("Up to %s candidate passwords will be tested. "+
			"This may take a very long time.", est)
	}

	var confirmed bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Start a large search?").
			Description(description).
			Affirmative("Start").
			Negative("Abort").
			Value(&confirmed),
	))
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}
	return confirmed, nil
}
