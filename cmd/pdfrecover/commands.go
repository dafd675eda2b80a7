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
	"time"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "pdfrecover",
		Short: "Recover lost passwords of encrypted PDF documents",
		Long: `pdfrecover runs an exhaustive candidate search against a
password-protected PDF document that you own. Candidates are generated
lazily in length order, so even huge search spaces start instantly and
use constant memory. A running search can be paused, resumed, and
cancelled at any time.`,
		SilenceUsage: true,
	}

	runCmd = &cobra.Command{
		Use:   "run [document.pdf]",
		Short: "Search for the password of an encrypted document",
		Long: `Tests generated candidate passwords against the document until one
opens it, the configured search space is exhausted, or the search is
cancelled.

Exit codes: 0 password found, 1 space exhausted, 2 cancelled, 3 error.`,
		Args: cobra.ExactArgs(1),
		RunE: runRecover,
	}

	estimateCmd = &cobra.Command{
		Use:   "estimate",
		Short: "Print the search space size for a candidate configuration",
		Long: `Computes how many candidate passwords the given alphabet and length
range produce, without touching any document. Use this to sanity-check
a configuration before starting a long search.`,
		Args: cobra.NoArgs,
		RunE: runEstimate,
	}

	// Generation flags, shared by run and estimate.
	flagMinLength int
	flagMaxLength int
	flagLowercase bool
	flagUppercase bool
	flagDigits    bool
	flagSpecial   bool
	flagCharset   string
	flagNoLimit   bool

	// Search control flags.
	flagYes           bool
	flagBatchSize     int
	flagMemoryLimitMB int
	flagMemoryAction  string
	flagProbeTimeout  time.Duration
	flagProbeRetries  int
	flagNoTUI         bool
	flagMetricsListen string

	// Ambient flags.
	flagConfig   string
	flagLogLevel string
	flagLogDir   string
	flagJSONLogs bool

	config Config
)

func init() {
	for _, cmd := range []*cobra.Command{runCmd, estimateCmd} {
		cmd.Flags().IntVar(&flagMinLength, "min", 1, "minimum candidate length")
		cmd.Flags().IntVar(&flagMaxLength, "max", 8, "maximum candidate length")
		cmd.Flags().BoolVar(&flagLowercase, "lowercase", false, "include a-z in the alphabet")
		cmd.Flags().BoolVar(&flagUppercase, "uppercase", false, "include A-Z in the alphabet")
		cmd.Flags().BoolVar(&flagDigits, "digits", false, "include 0-9 in the alphabet")
		cmd.Flags().BoolVar(&flagSpecial, "special", false, "include !@#$%^&* in the alphabet")
		cmd.Flags().StringVar(&flagCharset, "charset", "", "additional custom characters")
		cmd.Flags().BoolVar(&flagNoLimit, "no-limit", false, "no maximum length (search runs until stopped)")
	}

	runCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "start large searches without asking")
	runCmd.Flags().IntVar(&flagBatchSize, "batch", 100, "candidates per memory check and progress batch")
	runCmd.Flags().IntVar(&flagMemoryLimitMB, "memory-limit-mb", 1024, "memory ceiling in MiB, 0 disables the guard")
	runCmd.Flags().StringVar(&flagMemoryAction, "memory-action", "pause", "action at the memory ceiling: pause or cancel")
	runCmd.Flags().DurationVar(&flagProbeTimeout, "probe-timeout", 30*time.Second, "timeout for a single decryption attempt")
	runCmd.Flags().IntVar(&flagProbeRetries, "probe-retries", 2, "retries for transient decryption failures")
	runCmd.Flags().BoolVar(&flagNoTUI, "no-tui", false, "plain log output instead of the interactive view")
	runCmd.Flags().StringVar(&flagMetricsListen, "metrics-listen", "", "serve Prometheus metrics on this address (e.g. :9091)")

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.pdfrecover/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogDir, "log-dir", "", "also write JSON logs to this directory")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLogs, "json-logs", false, "JSON log output on the console")

	rootCmd.AddCommand(runCmd, estimateCmd)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		path := flagConfig
		explicit := path != ""
		if !explicit {
			path = defaultConfigPath()
		}
		var err error
		config, err = loadConfig(path, explicit)
		if err != nil {
			return err
		}
		return applyConfig(cmd)
	}
}

// applyConfig copies file-based defaults into the flag variables for
// every flag the user did not set explicitly.
func applyConfig(cmd *cobra.Command) error {
	set := func(name string) bool { return cmd.Flags().Changed(name) }

	if config.MinLength > 0 && !set("min") {
		flagMinLength = config.MinLength
	}
	if config.MaxLength > 0 && !set("max") {
		flagMaxLength = config.MaxLength
	}
	if config.Lowercase != nil && !set("lowercase") {
		flagLowercase = *config.Lowercase
	}
	if config.Uppercase != nil && !set("uppercase") {
		flagUppercase = *config.Uppercase
	}
	if config.Digits != nil && !set("digits") {
		flagDigits = *config.Digits
	}
	if config.Special != nil && !set("special") {
		flagSpecial = *config.Special
	}
	if config.Charset != "" && !set("charset") {
		flagCharset = config.Charset
	}
	if config.BatchSize > 0 && !set("batch") {
		flagBatchSize = config.BatchSize
	}
	if config.MemoryLimitMB > 0 && !set("memory-limit-mb") {
		flagMemoryLimitMB = config.MemoryLimitMB
	}
	if config.MemoryAction != "" && !set("memory-action") {
		flagMemoryAction = config.MemoryAction
	}
	if config.ProbeTimeout != "" && !set("probe-timeout") {
		d, err := time.ParseDuration(config.ProbeTimeout)
		if err != nil {
			return fmt.Errorf("config probe_timeout: %w", err)
		}
		flagProbeTimeout = d
	}
	if config.ProbeRetries > 0 && !set("probe-retries") {
		flagProbeRetries = config.ProbeRetries
	}
	if config.LogLevel != "" && !set("log-level") {
		flagLogLevel = config.LogLevel
	}
	if config.LogDir != "" && !set("log-dir") {
		flagLogDir = config.LogDir
	}
	if config.JSONLogs && !set("json-logs") {
		flagJSONLogs = true
	}
	if config.MetricsListen != "" && !set("metrics-listen") {
		flagMetricsListen = config.MetricsListen
	}
	return nil
}
