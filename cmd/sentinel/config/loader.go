// Copyright (C) 2025 FileHarbor Labs (ops@fileharbor.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the sentinel service configuration from YAML.
//
// Resolution order: the SENTINEL_CONFIG environment variable, then
// /etc/sentinel/sentinel.yaml. A missing file is materialized with defaults
// on first run. API keys are never read from the file when the matching
// environment variable is set:
//
//	SENTINEL_RELAY_KEY   overrides notify.api_key
//	SENTINEL_BACKUP_KEY  overrides monitor.backup_api_key
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const defaultPath = "/etc/sentinel/sentinel.yaml"

// Load reads, materializes if absent, and validates the configuration at
// path. An empty path falls back to SENTINEL_CONFIG, then the default
// location.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("SENTINEL_CONFIG")
	}
	if path == "" {
		path = defaultPath
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := createDefault(path); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if key := os.Getenv("SENTINEL_RELAY_KEY"); key != "" {
		cfg.Notify.APIKey = key
	}
	if key := os.Getenv("SENTINEL_BACKUP_KEY"); key != "" {
		cfg.Monitor.BackupAPIKey = key
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func createDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0640); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}
