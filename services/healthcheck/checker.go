// Copyright (C) 2025 FileHarbor Labs (ops@fileharbor.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package healthcheck

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fileharbor/sentinel/services/store"
)

// Config carries the fixed thresholds the checks compare against. Zero
// values are replaced with defaults by withDefaults; the service loads real
// values from its YAML config.
type Config struct {
	// LargeTableRows flags any checked table at or above this row count.
	LargeTableRows int64

	// PoolUsageWarn flags connection-pool saturation at or above this
	// in-use/open ratio.
	PoolUsageWarn float64

	// StaleNotificationAge and StaleNotificationCount gate the read-
	// notification cleanup: only when at least Count read rows are older
	// than Age does the check fire (and clean).
	StaleNotificationAge   time.Duration
	StaleNotificationCount int64

	// StaleLogAge and StaleLogCount gate the audit-log cleanup the same way.
	StaleLogAge   time.Duration
	StaleLogCount int64

	// RecentCriticalWindow and RecentCriticalMax flag a burst of critical
	// audit entries inside the window.
	RecentCriticalWindow time.Duration
	RecentCriticalMax    int64

	// SlowQueryThreshold and SlowQueryWindow flag long-running recorded
	// operations.
	SlowQueryThreshold time.Duration
	SlowQueryWindow    time.Duration

	// MaxAdmins flags an oversized privileged-account set. Zero admins is
	// always critical regardless of this value.
	MaxAdmins int64
}

func (c Config) withDefaults() Config {
	if c.LargeTableRows == 0 {
		c.LargeTableRows = 500_000
	}
	if c.PoolUsageWarn == 0 {
		c.PoolUsageWarn = 0.8
	}
	if c.StaleNotificationAge == 0 {
		c.StaleNotificationAge = 30 * 24 * time.Hour
	}
	if c.StaleNotificationCount == 0 {
		c.StaleNotificationCount = 1000
	}
	if c.StaleLogAge == 0 {
		c.StaleLogAge = 90 * 24 * time.Hour
	}
	if c.StaleLogCount == 0 {
		c.StaleLogCount = 10_000
	}
	if c.RecentCriticalWindow == 0 {
		c.RecentCriticalWindow = 24 * time.Hour
	}
	if c.RecentCriticalMax == 0 {
		c.RecentCriticalMax = 5
	}
	if c.SlowQueryThreshold == 0 {
		c.SlowQueryThreshold = 10 * time.Second
	}
	if c.SlowQueryWindow == 0 {
		c.SlowQueryWindow = 24 * time.Hour
	}
	if c.MaxAdmins == 0 {
		c.MaxAdmins = 5
	}
	return c
}

// Checker holds the collaborators the check modules share. Methods on
// Checker are the individual checks; each performs bounded queries and
// returns its findings as values.
type Checker struct {
	store *store.Store
	cfg   Config
	log   *slog.Logger
}

// NewChecker builds a Checker over the given store. A nil logger falls back
// to slog.Default().
func NewChecker(s *store.Store, cfg Config, log *slog.Logger) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{store: s, cfg: cfg.withDefaults(), log: log}
}

// remediate is the remediation executor: it runs the corrective mutation for
// an auto-fixable issue inside its own failure boundary. On success the
// issue is marked fixed; on any error or panic it stays unfixed, which
// routes it to the manual-action bucket when the report is built. Mutations
// are per-row and idempotent, so a partial failure just leaves rows for the
// next run to find.
func (c *Checker) remediate(issue *Issue, fix func() error) {
	if !issue.AutoFixable {
		return
	}
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("remediation panic: %v", r)
			}
		}()
		return fix()
	}()
	if err != nil {
		c.log.Error("remediation failed, routing to manual action",
			"category", issue.Category,
			"location", issue.Location,
			"error", err)
		return
	}
	issue.Fixed = true
	c.log.Info("issue auto-fixed",
		"category", issue.Category,
		"location", issue.Location)
}
