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
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/pdfrecover/pkg/logging"
	"github.com/AleutianAI/pdfrecover/services/recovery"
	"github.com/AleutianAI/pdfrecover/services/recovery/pdf"
	"github.com/AleutianAI/pdfrecover/services/recovery/tui"
)

// runRecover drives a full recovery session: probe construction, the
// size confirmation gate, the search itself, and result reporting.
func runRecover(cmd *cobra.Command, args []string) error {
	docPath := args[0]
	interactive := !flagNoTUI &&
		isatty.IsTerminal(os.Stdout.Fd()) &&
		isatty.IsTerminal(os.Stdin.Fd())

	logger := newLogger(interactive)
	defer logger.Close()

	gen, err := generationFromFlags()
	if err != nil {
		exitCode = 3
		return err
	}

	probe, err := pdf.NewDocumentProbe(docPath)
	if err != nil {
		exitCode = 3
		return err
	}

	if flagMetricsListen != "" {
		startMetricsServer(flagMetricsListen, logger)
	}

	action := recovery.PauseOnPressure
	if flagMemoryAction == "cancel" {
		action = recovery.CancelOnPressure
	}
	controller := recovery.NewController(recovery.ControllerConfig{
		BatchSize:          flagBatchSize,
		ProbeTimeout:       flagProbeTimeout,
		ProbeRetries:       flagProbeRetries,
		MemoryCeilingBytes: uint64(flagMemoryLimitMB) << 20,
		OnMemoryPressure:   action,
		Logger:             logger.Slog(),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Subscribe before Start so the view sees every snapshot,
	// including a fast terminal one.
	snapshots := controller.Subscribe(64)

	_, err = controller.Start(ctx, gen, probe, flagYes)
	if errors.Is(err, recovery.ErrConfirmationRequired) {
		if !interactive {
			exitCode = 3
			return fmt.Errorf("%w; rerun with --yes to start anyway", err)
		}
		confirmed, confirmErr := tui.ConfirmLargeSearch(recovery.EstimateSize(gen))
		if confirmErr != nil {
			exitCode = 3
			return confirmErr
		}
		if !confirmed {
			fmt.Fprintln(os.Stderr, "Search aborted.")
			exitCode = 2
			return nil
		}
		_, err = controller.Start(ctx, gen, probe, true)
	}
	if err != nil {
		exitCode = 3
		return err
	}

	var result recovery.Result
	if interactive {
		result, err = runInteractive(controller, snapshots, docPath)
	} else {
		result, err = runPlain(controller, snapshots, logger)
	}
	if err != nil {
		exitCode = 3
		return err
	}
	return reportResult(result)
}

// runInteractive hands the terminal to the bubbletea view until the
// session reaches a terminal state.
func runInteractive(controller *recovery.Controller, snapshots <-chan recovery.ProgressSnapshot, docPath string) (recovery.Result, error) {
	model := tui.NewSearchModel(controller, snapshots, tui.SearchConfig{
		DocumentPath: docPath,
	})
	if _, err := tea.NewProgram(model).Run(); err != nil {
		// The terminal is gone; stop the worker before reporting.
		_ = controller.Cancel()
		_, _ = controller.Wait(context.Background())
		return recovery.Result{}, fmt.Errorf("terminal ui: %w", err)
	}

	// The view quits only after the session is terminal.
	result, ok := controller.Result()
	if !ok {
		return controller.Wait(context.Background())
	}
	return result, nil
}

// runPlain logs progress instead of rendering it. Cancellation comes
// through the signal context wired into Start.
func runPlain(controller *recovery.Controller, snapshots <-chan recovery.ProgressSnapshot, logger *logging.Logger) (recovery.Result, error) {
	var g errgroup.Group
	g.Go(func() error {
		lastReport := time.Now()
		for snap := range snapshots {
			logger.Debug("progress",
				"state", snap.State.String(),
				"attempts", snap.Attempts,
				"current", snap.CurrentCandidate,
			)
			if snap.State.Terminal() || time.Since(lastReport) >= 5*time.Second {
				logger.Info("search progress",
					"state", snap.State.String(),
					"attempts", snap.Attempts,
					"estimated_total", snap.EstimatedTotal.String(),
					"elapsed", snap.Elapsed.Round(time.Second),
				)
				lastReport = time.Now()
			}
		}
		return nil
	})

	result, err := controller.Wait(context.Background())
	if waitErr := g.Wait(); waitErr != nil && err == nil {
		err = waitErr
	}
	return result, err
}

// reportResult prints the outcome and sets the process exit code. The
// recovered password goes to stdout on its own line so the command
// composes with scripts.
func reportResult(result recovery.Result) error {
	switch result.Kind {
	case recovery.ResultFound:
		fmt.Println(result.Password)
		exitCode = 0
		return nil
	case recovery.ResultNotFound:
		fmt.Fprintln(os.Stderr, "Search space exhausted, password not found.")
		exitCode = 1
		return nil
	case recovery.ResultCancelled:
		fmt.Fprintln(os.Stderr, "Search cancelled.")
		exitCode = 2
		return nil
	default:
		exitCode = 3
		if result.Err != nil {
			return result.Err
		}
		return errors.New("search failed")
	}
}

// generationFromFlags assembles and validates the candidate
// configuration shared by run and estimate.
func generationFromFlags() (recovery.GenerationConfig, error) {
	alphabet, err := recovery.BuildAlphabet(recovery.AlphabetOptions{
		Lowercase: flagLowercase,
		Uppercase: flagUppercase,
		Digits:    flagDigits,
		Special:   flagSpecial,
		Custom:    flagCharset,
	})
	if err != nil {
		return recovery.GenerationConfig{}, err
	}

	maxLength := flagMaxLength
	if flagNoLimit {
		maxLength = recovery.NoMaxLength
	}
	gen := recovery.GenerationConfig{
		MinLength: flagMinLength,
		MaxLength: maxLength,
		Alphabet:  alphabet,
	}
	if err := gen.Validate(); err != nil {
		return recovery.GenerationConfig{}, err
	}
	return gen, nil
}

// newLogger builds the process logger. The interactive view owns the
// terminal, so console logging is suppressed while it runs.
func newLogger(interactive bool) *logging.Logger {
	level, err := logging.ParseLevel(flagLogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  flagLogDir,
		Service: "pdfrecover",
		JSON:    flagJSONLogs,
		Quiet:   interactive,
	})
}
