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
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// CheckFunc is one check module: bounded queries in, issues out. A CheckFunc
// must not touch the report; the pipeline owns merging.
type CheckFunc func(ctx context.Context) ([]Issue, error)

// Check pairs a check module with its report name.
type Check struct {
	Name string
	Run  CheckFunc
}

// Pipeline runs every registered check sequentially against the shared
// store, isolating per-check failures, and folds the results into one
// HealthReport.
//
// Checks never run concurrently within an invocation: the store session is
// shared, and issue ordering in the report should follow declaration order.
type Pipeline struct {
	checks []Check
	log    *slog.Logger
}

// NewPipeline registers the standard check set in report order.
func NewPipeline(c *Checker, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		log: log,
		checks: []Check{
			{Name: "connectivity", Run: c.CheckConnectivity},
			{Name: "referential_integrity", Run: c.CheckReferentialIntegrity},
			{Name: "resource_integrity", Run: c.CheckResourceIntegrity},
			{Name: "account_integrity", Run: c.CheckAccountIntegrity},
			{Name: "audit_logs", Run: c.CheckAuditLogs},
			{Name: "performance", Run: c.CheckPerformance},
			{Name: "access_control", Run: c.CheckAccessControl},
		},
	}
}

// NewCustomPipeline builds a pipeline over an explicit check list. Used by
// tests and by deployments that disable individual checks.
func NewCustomPipeline(checks []Check, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{checks: checks, log: log}
}

// TotalChecks reports how many checks are registered.
func (p *Pipeline) TotalChecks() int {
	return len(p.checks)
}

// Run executes the full diagnostic pass and returns the report.
//
// A failing check contributes zero issues, is recorded under CheckErrors,
// and never stops the run. Run itself returns an error only for
// pipeline-level faults (context cancellation between checks); callers route
// that to the critical-failure notification path.
func (p *Pipeline) Run(ctx context.Context) (*HealthReport, error) {
	runID := uuid.NewString()
	started := time.Now()
	log := p.log.With("run_id", runID)
	log.Info("health check run starting", "checks", len(p.checks))

	var issues []Issue
	var checkErrs []string
	for _, check := range p.checks {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pipeline aborted before check %s: %w", check.Name, err)
		}
		found, err := isolate(ctx, check)
		if err != nil {
			log.Error("check failed, continuing", "check", check.Name, "error", err)
			checkErrs = append(checkErrs, fmt.Sprintf("%s: %v", check.Name, err))
			continue
		}
		issues = append(issues, found...)
	}

	report := buildReport(time.Now(), issues, checkErrs, len(p.checks))
	log.Info("health check run complete",
		"status", report.Status.String(),
		"found", report.Stats.IssuesFound,
		"fixed", report.Stats.IssuesFixed,
		"manual", report.Stats.ManualRequired,
		"duration_ms", time.Since(started).Milliseconds())
	return report, nil
}

// isolate is the uniform failure boundary applied to every check. Errors and
// panics inside a check are converted to a per-check error; the check then
// contributes nothing to the run.
func isolate(ctx context.Context, check Check) (issues []Issue, err error) {
	defer func() {
		if r := recover(); r != nil {
			issues = nil
			err = fmt.Errorf("check panic: %v", r)
		}
	}()
	return check.Run(ctx)
}
