// Copyright (C) 2025 FileHarbor Labs (ops@fileharbor.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"time"

	"github.com/fileharbor/sentinel/services/healthcheck"
	"github.com/fileharbor/sentinel/services/monitor"
	"github.com/fileharbor/sentinel/services/notify"
)

// Config is the full sentinel service configuration, loaded from YAML with
// secrets overridable from the environment.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Cadence  CadenceConfig  `yaml:"cadence"`
	Checks   ChecksConfig   `yaml:"checks"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Notify   NotifyConfig   `yaml:"notify"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port string `yaml:"port" validate:"required"`
}

type DatabaseConfig struct {
	// Path to the Harbor application database the bots inspect.
	Path string `yaml:"path" validate:"required"`
}

type CadenceConfig struct {
	// Path holds the durable cadence state (BadgerDB directory).
	Path string `yaml:"path" validate:"required"`

	// IntervalDays is the minimum gap between routine status notices.
	IntervalDays int `yaml:"interval_days" validate:"min=1"`
}

// ChecksConfig mirrors healthcheck.Config in file-friendly units.
type ChecksConfig struct {
	LargeTableRows         int64   `yaml:"large_table_rows"`
	PoolUsageWarn          float64 `yaml:"pool_usage_warn"`
	StaleNotificationDays  int     `yaml:"stale_notification_days"`
	StaleNotificationCount int64   `yaml:"stale_notification_count"`
	StaleLogDays           int     `yaml:"stale_log_days"`
	StaleLogCount          int64   `yaml:"stale_log_count"`
	RecentCriticalHours    int     `yaml:"recent_critical_hours"`
	RecentCriticalMax      int64   `yaml:"recent_critical_max"`
	SlowQueryMS            int64   `yaml:"slow_query_ms"`
	SlowQueryWindowHours   int     `yaml:"slow_query_window_hours"`
	MaxAdmins              int64   `yaml:"max_admins"`
}

type MonitorConfig struct {
	SiteHealthURL       string `yaml:"site_health_url" validate:"omitempty,url"`
	DBHealthURL         string `yaml:"db_health_url" validate:"omitempty,url"`
	ProbeTimeoutSeconds int    `yaml:"probe_timeout_seconds"`
	BackupURL           string `yaml:"backup_url" validate:"omitempty,url"`
	BackupAPIKey        string `yaml:"backup_api_key"`
	ErrorWindowHours    int    `yaml:"error_window_hours"`
	ErrorMax            int64  `yaml:"error_max"`
}

type NotifyConfig struct {
	RelayURL string `yaml:"relay_url" validate:"required,url"`
	APIKey   string `yaml:"api_key"`
	From     string `yaml:"from" validate:"required,email"`
	To       string `yaml:"to" validate:"required,email"`
}

type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns the configuration materialized on first run.
func DefaultConfig() Config {
	return Config{
		Server:   ServerConfig{Port: "12400"},
		Database: DatabaseConfig{Path: "/var/lib/harbor/harbor.db"},
		Cadence:  CadenceConfig{Path: "/var/lib/sentinel/cadence", IntervalDays: 3},
		Checks: ChecksConfig{
			LargeTableRows:         500_000,
			PoolUsageWarn:          0.8,
			StaleNotificationDays:  30,
			StaleNotificationCount: 1000,
			StaleLogDays:           90,
			StaleLogCount:          10_000,
			RecentCriticalHours:    24,
			RecentCriticalMax:      5,
			SlowQueryMS:            10_000,
			SlowQueryWindowHours:   24,
			MaxAdmins:              5,
		},
		Monitor: MonitorConfig{
			SiteHealthURL:       "https://app.harbor.io/api/health",
			DBHealthURL:         "https://app.harbor.io/api/health/db",
			ProbeTimeoutSeconds: 10,
			ErrorWindowHours:    24,
			ErrorMax:            10,
		},
		Notify: NotifyConfig{
			RelayURL: "https://mail.harbor.io/v1/send",
			From:     "sentinel@harbor.io",
			To:       "ops@harbor.io",
		},
		Logging: LoggingConfig{Level: "info", JSON: true},
	}
}

// HealthcheckConfig converts the file units into the checker's thresholds.
func (c Config) HealthcheckConfig() healthcheck.Config {
	return healthcheck.Config{
		LargeTableRows:         c.Checks.LargeTableRows,
		PoolUsageWarn:          c.Checks.PoolUsageWarn,
		StaleNotificationAge:   days(c.Checks.StaleNotificationDays),
		StaleNotificationCount: c.Checks.StaleNotificationCount,
		StaleLogAge:            days(c.Checks.StaleLogDays),
		StaleLogCount:          c.Checks.StaleLogCount,
		RecentCriticalWindow:   hours(c.Checks.RecentCriticalHours),
		RecentCriticalMax:      c.Checks.RecentCriticalMax,
		SlowQueryThreshold:     time.Duration(c.Checks.SlowQueryMS) * time.Millisecond,
		SlowQueryWindow:        hours(c.Checks.SlowQueryWindowHours),
		MaxAdmins:              c.Checks.MaxAdmins,
	}
}

// MonitorBotConfig converts the monitor section.
func (c Config) MonitorBotConfig() monitor.Config {
	return monitor.Config{
		SiteHealthURL: c.Monitor.SiteHealthURL,
		DBHealthURL:   c.Monitor.DBHealthURL,
		ProbeTimeout:  time.Duration(c.Monitor.ProbeTimeoutSeconds) * time.Second,
		BackupURL:     c.Monitor.BackupURL,
		BackupAPIKey:  c.Monitor.BackupAPIKey,
		ErrorWindow:   hours(c.Monitor.ErrorWindowHours),
		ErrorMax:      c.Monitor.ErrorMax,
	}
}

// RelayConfig converts the notify section.
func (c Config) RelayConfig() notify.RelayConfig {
	return notify.RelayConfig{
		URL:    c.Notify.RelayURL,
		APIKey: c.Notify.APIKey,
		From:   c.Notify.From,
	}
}

// CadenceInterval returns the routine-notice interval as a duration.
func (c Config) CadenceInterval() time.Duration {
	return days(c.Cadence.IntervalDays)
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

func hours(n int) time.Duration {
	return time.Duration(n) * time.Hour
}
