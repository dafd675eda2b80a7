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
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("pdfrecover.recovery")

// controllerMetrics holds the controller's instruments.
// Initialized lazily; creation failures degrade to no-op logging rather
// than blocking the search.
type controllerMetrics struct {
	once sync.Once

	attempts      metric.Int64Counter
	probeDuration metric.Float64Histogram
	memoryBytes   metric.Int64Gauge
	sessions      metric.Int64Counter
}

func (m *controllerMetrics) init(logger *slog.Logger) {
	m.once.Do(func() {
		var initErrors []string

		var err error
		m.attempts, err = meter.Int64Counter("pdfrecover_attempts_total",
			metric.WithDescription("Number of candidate passwords tested"),
		)
		if err != nil {
			initErrors = append(initErrors, "attempts: "+err.Error())
		}

		m.probeDuration, err = meter.Float64Histogram("pdfrecover_probe_duration_seconds",
			metric.WithDescription("Time spent in a single probe call"),
			metric.WithUnit("s"),
		)
		if err != nil {
			initErrors = append(initErrors, "probe_duration: "+err.Error())
		}

		m.memoryBytes, err = meter.Int64Gauge("pdfrecover_memory_bytes",
			metric.WithDescription("Most recent process memory sample"),
			metric.WithUnit("By"),
		)
		if err != nil {
			initErrors = append(initErrors, "memory_bytes: "+err.Error())
		}

		m.sessions, err = meter.Int64Counter("pdfrecover_sessions_total",
			metric.WithDescription("Number of search sessions started"),
		)
		if err != nil {
			initErrors = append(initErrors, "sessions: "+err.Error())
		}

		if len(initErrors) > 0 && logger != nil {
			logger.Warn("metrics init failed, continuing without",
				"errors", strings.Join(initErrors, "; "))
		}
	})
}
