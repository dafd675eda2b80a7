// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tui provides the terminal user interface for password recovery.
//
// # Description
//
// This package implements the interactive search view using bubbletea.
// It renders live progress from the search controller and translates
// key presses into pause, resume, and cancel commands.
//
// # Thread Safety
//
// TUI components are designed for single-threaded use within the
// bubbletea event loop. The search controller is the only object the
// model talks to from the event loop, and its methods are safe to call
// from any goroutine.
package tui

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AleutianAI/pdfrecover/services/recovery"
)

// =============================================================================
// Messages
// =============================================================================

// DoneMsg signals that the search reached a terminal state.
type DoneMsg struct {
	Result recovery.Result
}

// snapshotMsg carries one progress snapshot from the controller.
type snapshotMsg recovery.ProgressSnapshot

// streamClosedMsg signals that the snapshot channel was closed.
type streamClosedMsg struct{}

// =============================================================================
// Config
// =============================================================================

// SearchConfig configures the search TUI.
type SearchConfig struct {
	// DocumentPath is shown in the header.
	DocumentPath string

	// Width overrides terminal width (0 = auto-detect).
	Width int
}

// =============================================================================
// Model
// =============================================================================

// SearchModel is the bubbletea model for a running recovery session.
//
// # Description
//
// The model consumes progress snapshots from the controller's
// subscription channel and re-arms the read after each message, so the
// event loop never blocks on the search. Key presses map to controller
// calls; the model itself carries no search state beyond the last
// snapshot.
type SearchModel struct {
	config     SearchConfig
	controller *recovery.Controller
	snapshots  <-chan recovery.ProgressSnapshot

	bar     progress.Model
	spinner spinner.Model

	snap   recovery.ProgressSnapshot
	width  int
	done   bool
	result recovery.Result
}

// NewSearchModel creates a model bound to a started controller session.
//
// The snapshots channel must come from controller.Subscribe before the
// session can finish, otherwise the model would miss the terminal
// snapshot.
func NewSearchModel(controller *recovery.Controller, snapshots <-chan recovery.ProgressSnapshot, config SearchConfig) SearchModel {
	bar := progress.New(progress.WithDefaultGradient())
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	width := config.Width
	if width == 0 {
		width = 80
	}

	return SearchModel{
		config:     config,
		controller: controller,
		snapshots:  snapshots,
		bar:        bar,
		spinner:    sp,
		snap:       controller.Snapshot(),
		width:      width,
	}
}

// Init implements tea.Model.
func (m SearchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForSnapshot())
}

// waitForSnapshot re-arms the subscription read.
func (m SearchModel) waitForSnapshot() tea.Cmd {
	ch := m.snapshots
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return snapshotMsg(snap)
	}
}

// Update implements tea.Model.
func (m SearchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = msg.Width - 8
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "p":
			_ = m.controller.Pause()
		case "r":
			_ = m.controller.Resume()
		case "c", "q", "ctrl+c":
			// The terminal snapshot arrives through the subscription and
			// quits the program; no state change here.
			_ = m.controller.Cancel()
		}
		return m, nil

	case snapshotMsg:
		m.snap = recovery.ProgressSnapshot(msg)
		return m, m.waitForSnapshot()

	case streamClosedMsg:
		m.done = true
		if result, ok := m.controller.Result(); ok {
			m.result = result
		}
		result := m.result
		return m, tea.Sequence(
			func() tea.Msg { return DoneMsg{Result: result} },
			tea.Quit,
		)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m SearchModel) View() string {
	if m.done {
		return m.renderFinal()
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("pdfrecover"))
	if m.config.DocumentPath != "" {
		b.WriteString("  ")
		b.WriteString(pathStyle.Render(m.config.DocumentPath))
	}
	b.WriteString("\n\n")

	b.WriteString(m.renderState())
	b.WriteString("\n")
	b.WriteString(m.renderProgress())
	b.WriteString("\n")
	b.WriteString(m.renderStats())
	b.WriteString("\n")

	if m.snap.MemoryPressure {
		b.WriteString(warnStyle.Render("memory limit reached, search paused; free memory and press r"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// =============================================================================
// Rendering
// =============================================================================

func (m SearchModel) renderState() string {
	switch m.snap.State {
	case recovery.StatePaused:
		return pausedBadge.Render("PAUSED")
	case recovery.StateRunning:
		return m.spinner.View() + " " + runningStyle.Render("searching")
	default:
		return statsStyle.Render(m.snap.State.String())
	}
}

func (m SearchModel) renderProgress() string {
	if frac, ok := searchFraction(m.snap); ok {
		return m.bar.ViewAs(frac)
	}
	return statsStyle.Render("unbounded search, no completion estimate")
}

func (m SearchModel) renderStats() string {
	var parts []string

	total := m.snap.EstimatedTotal.String()
	parts = append(parts, fmt.Sprintf("tried %d of %s", m.snap.Attempts, total))

	if m.snap.CurrentCandidate != "" {
		parts = append(parts, "current "+candidateStyle.Render(m.snap.CurrentCandidate))
	}

	if secs := m.snap.Elapsed.Seconds(); secs > 0 {
		parts = append(parts, fmt.Sprintf("%.0f/s", float64(m.snap.Attempts)/secs))
	}
	parts = append(parts, m.snap.Elapsed.Round(time.Second).String())

	if m.snap.MemoryBytes > 0 {
		parts = append(parts, fmt.Sprintf("%d MiB", m.snap.MemoryBytes>>20))
	}

	return statsStyle.Render(strings.Join(parts, "  •  "))
}

func (m SearchModel) renderFooter() string {
	keys := []struct{ key, desc string }{
		{"p", "pause"},
		{"r", "resume"},
		{"c", "cancel"},
		{"q", "quit"},
	}
	var parts []string
	for _, k := range keys {
		parts = append(parts, helpKeyStyle.Render(k.key)+" "+helpDescStyle.Render(k.desc))
	}
	return strings.Join(parts, "   ")
}

func (m SearchModel) renderFinal() string {
	switch m.result.Kind {
	case recovery.ResultFound:
		return foundStyle.Render("Password found: "+m.result.Password) + "\n"
	case recovery.ResultNotFound:
		return warnStyle.Render("Search space exhausted, password not found.") + "\n"
	case recovery.ResultCancelled:
		return statsStyle.Render("Search cancelled.") + "\n"
	default:
		if m.result.Err != nil {
			return errorStyle.Render("Search failed: "+m.result.Err.Error()) + "\n"
		}
		return errorStyle.Render("Search failed.") + "\n"
	}
}

// Result returns the terminal result after the TUI exits.
func (m SearchModel) Result() (recovery.Result, bool) {
	return m.result, m.done
}

// searchFraction converts a snapshot into a completion ratio for the
// progress bar. Unbounded searches have no ratio.
func searchFraction(snap recovery.ProgressSnapshot) (float64, bool) {
	if snap.EstimatedTotal.Unbounded() {
		return 0, false
	}
	if total, ok := snap.EstimatedTotal.Uint64(); ok {
		if total == 0 {
			return 0, false
		}
		return float64(snap.Attempts) / float64(total), true
	}
	// Totals past uint64 still get a (vanishingly small) ratio.
	attempts := new(big.Float).SetUint64(snap.Attempts)
	total := new(big.Float).SetInt(snap.EstimatedTotal.Total())
	frac, _ := new(big.Float).Quo(attempts, total).Float64()
	return frac, true
}

// =============================================================================
// Styles
// =============================================================================

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212"))

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	candidateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Bold(true)

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	foundStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	pausedBadge = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Background(lipgloss.Color("58")).
			Padding(0, 1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))
)
