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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the optional file-based defaults. Command line flags
// take precedence over anything set here.
type Config struct {
	MinLength int    `yaml:"min_length" validate:"omitempty,gte=1"`
	MaxLength int    `yaml:"max_length" validate:"gte=0"`
	Lowercase *bool  `yaml:"lowercase"`
	Uppercase *bool  `yaml:"uppercase"`
	Digits    *bool  `yaml:"digits"`
	Special   *bool  `yaml:"special"`
	Charset   string `yaml:"charset"`

	BatchSize     int    `yaml:"batch_size" validate:"gte=0"`
	MemoryLimitMB int    `yaml:"memory_limit_mb" validate:"gte=0"`
	MemoryAction  string `yaml:"memory_action" validate:"omitempty,oneof=pause cancel"`
	ProbeTimeout  string `yaml:"probe_timeout"`
	ProbeRetries  int    `yaml:"probe_retries" validate:"gte=0"`

	LogLevel      string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogDir        string `yaml:"log_dir"`
	JSONLogs      bool   `yaml:"json_logs"`
	MetricsListen string `yaml:"metrics_listen"`
}

// defaultConfigPath is searched when --config is not given.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".pdfrecover", "config.yaml")
}

// loadConfig reads the YAML configuration at path. A missing file is
// not an error when the path was not explicitly requested.
func loadConfig(path string, explicit bool) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
