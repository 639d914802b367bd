// Copyright (C) 2025 FileHarbor Labs (ops@fileharbor.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package healthcheck

import (
	"context"
	"fmt"
	"time"
)

// CheckConnectivity probes the store itself: reachability, connection-pool
// saturation, and oversized tables. Nothing here is auto-fixable; a
// saturated pool or a huge table needs operator judgement.
func (c *Checker) CheckConnectivity(ctx context.Context) ([]Issue, error) {
	if err := c.store.Ping(ctx); err != nil {
		// Reachability is reported as a finding rather than a check error:
		// the scan itself worked, the store is the problem.
		return []Issue{newIssue(findingStoreUnreachable, "database",
			fmt.Sprintf("database unreachable: %v", err))}, nil
	}

	var issues []Issue
	stats := c.store.PoolStats()
	if stats.MaxOpenConnections > 0 {
		usage := float64(stats.InUse) / float64(stats.MaxOpenConnections)
		if usage >= c.cfg.PoolUsageWarn {
			issues = append(issues, newIssue(findingPoolSaturation, "database",
				fmt.Sprintf("connection pool at %.0f%% (%d of %d in use)",
					usage*100, stats.InUse, stats.MaxOpenConnections)))
		}
	}

	sizes, err := c.store.TableSizes(ctx)
	if err != nil {
		return nil, fmt.Errorf("table sizes: %w", err)
	}
	for _, ts := range sizes {
		if ts.Rows >= c.cfg.LargeTableRows {
			issues = append(issues, newIssue(findingLargeTable, ts.Table,
				fmt.Sprintf("table %s holds %d rows (threshold %d)",
					ts.Table, ts.Rows, c.cfg.LargeTableRows)))
		}
	}
	return issues, nil
}

// CheckAuditLogs watches the audit trail for a recent burst of critical
// entries (manual: something is actively wrong) and for a stale backlog
// above the configured count (auto-cleaned by age).
func (c *Checker) CheckAuditLogs(ctx context.Context) ([]Issue, error) {
	var issues []Issue

	since := time.Now().Add(-c.cfg.RecentCriticalWindow)
	recent, err := c.store.CountLogsAtLevelSince(ctx, "critical", since)
	if err != nil {
		return nil, fmt.Errorf("count recent critical logs: %w", err)
	}
	if recent >= c.cfg.RecentCriticalMax {
		issues = append(issues, newIssue(findingCriticalLogBurst, "audit_logs",
			fmt.Sprintf("%d critical log entries in the last %s",
				recent, c.cfg.RecentCriticalWindow)))
	}

	cutoff := time.Now().Add(-c.cfg.StaleLogAge)
	stale, err := c.store.CountLogsOlderThan(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("count stale logs: %w", err)
	}
	if stale >= c.cfg.StaleLogCount {
		issue := newIssue(findingStaleLogs, "audit_logs",
			fmt.Sprintf("%d log entries older than %s",
				stale, c.cfg.StaleLogAge))
		c.remediate(&issue, func() error {
			_, err := c.store.DeleteLogsOlderThan(ctx, cutoff)
			return err
		})
		issues = append(issues, issue)
	}

	return issues, nil
}

// CheckPerformance reports recorded operations that ran longer than the
// configured threshold inside the lookback window. Always manual: slow
// queries are a symptom, never something to delete.
func (c *Checker) CheckPerformance(ctx context.Context) ([]Issue, error) {
	since := time.Now().Add(-c.cfg.SlowQueryWindow)
	slow, err := c.store.SlowOperationsSince(ctx, since, c.cfg.SlowQueryThreshold)
	if err != nil {
		return nil, fmt.Errorf("scan slow operations: %w", err)
	}
	if len(slow) == 0 {
		return nil, nil
	}
	worst := slow[0]
	return []Issue{newIssue(findingSlowOperations, "audit_logs",
		fmt.Sprintf("%d operations exceeded %s (worst: %s at %dms)",
			len(slow), c.cfg.SlowQueryThreshold, worst.Source, worst.DurationMS))}, nil
}
