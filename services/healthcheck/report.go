// Copyright (C) 2025 FileHarbor Labs (ops@fileharbor.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package healthcheck implements the integrity/security scanner bot: a
// sequential pipeline of independent check modules that inspect the Harbor
// data store, apply deterministic row-level repairs where safe, and fold
// their findings into a single HealthReport.
//
// Design notes:
//
//   - Checks are registered declaratively (name → run func) and executed in
//     declaration order so report ordering is stable for operators.
//   - Each check runs inside a uniform isolation boundary. A failing check
//     contributes zero issues and never blanks the rest of the report.
//   - Checks return their issues as values; the pipeline owns the report and
//     merges after each step. Nothing mutates shared state mid-check.
package healthcheck

import (
	"encoding/json"
	"fmt"
	"time"
)

// Severity ranks a single finding. Ordered: Info < Warning < Error < Critical.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns the wire name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON renders the severity as its wire name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses a severity wire name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "INFO":
		*s = SeverityInfo
	case "WARNING":
		*s = SeverityWarning
	case "ERROR":
		*s = SeverityError
	case "CRITICAL":
		*s = SeverityCritical
	default:
		return fmt.Errorf("unknown severity %q", name)
	}
	return nil
}

// Status is the overall report verdict, derived from the worst finding.
type Status int

const (
	StatusHealthy Status = iota
	StatusIssuesFound
	StatusCritical
)

// String returns the wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "HEALTHY"
	case StatusIssuesFound:
		return "ISSUES_FOUND"
	case StatusCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON renders the status as its wire name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses a status wire name.
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "HEALTHY":
		*s = StatusHealthy
	case "ISSUES_FOUND":
		*s = StatusIssuesFound
	case "CRITICAL":
		*s = StatusCritical
	default:
		return fmt.Errorf("unknown status %q", name)
	}
	return nil
}

// Issue is one detected problem. Issues live for a single pipeline run; there
// is no identity or deduplication across runs.
type Issue struct {
	Severity    Severity `json:"severity"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	AutoFixable bool     `json:"autoFixable"`
	Fixed       bool     `json:"fixed"`
}

// Stats summarizes one run. TotalChecks is the count of registered check
// modules, not a count of issues.
type Stats struct {
	TotalChecks    int `json:"totalChecks"`
	IssuesFound    int `json:"issuesFound"`
	IssuesFixed    int `json:"issuesFixed"`
	ManualRequired int `json:"manualRequired"`
}

// HealthReport is the per-run aggregate the bot hands to the dispatcher and
// the HTTP caller.
type HealthReport struct {
	Timestamp            time.Time `json:"timestamp"`
	Status               Status    `json:"status"`
	IssuesFound          []Issue   `json:"issuesFound"`
	IssuesFixed          []Issue   `json:"issuesFixed"`
	ManualActionRequired []Issue   `json:"manualActionRequired"`
	Stats                Stats     `json:"stats"`
	CheckErrors          []string  `json:"checkErrors,omitempty"`
}

// Aggregate derives the overall status and stats from the accumulated
// issues. Pure: no side effects, no clock reads.
//
// Status ordinal: any CRITICAL issue wins, any issue at all means
// ISSUES_FOUND, otherwise HEALTHY.
func Aggregate(issues []Issue, totalChecks int) (Status, Stats) {
	stats := Stats{
		TotalChecks: totalChecks,
		IssuesFound: len(issues),
	}
	status := StatusHealthy
	for _, issue := range issues {
		if status == StatusHealthy {
			status = StatusIssuesFound
		}
		if issue.Severity == SeverityCritical {
			status = StatusCritical
		}
		if issue.Fixed {
			stats.IssuesFixed++
		} else if requiresManualAction(issue) {
			stats.ManualRequired++
		}
	}
	return status, stats
}

// requiresManualAction decides whether an unfixed issue lands in the
// manual-action bucket. Auto-fixable issues that remain unfixed had a failed
// remediation and always require a human. Non-fixable issues require a human
// from WARNING up; INFO-level observations stay informational.
func requiresManualAction(issue Issue) bool {
	if issue.Fixed {
		return false
	}
	if issue.AutoFixable {
		return true
	}
	return issue.Severity >= SeverityWarning
}

// buildReport partitions issues into the report buckets and stamps the
// aggregate verdict. Every issue appears in at most one of IssuesFixed /
// ManualActionRequired.
func buildReport(now time.Time, issues []Issue, checkErrs []string, totalChecks int) *HealthReport {
	report := &HealthReport{
		Timestamp:            now,
		IssuesFound:          issues,
		IssuesFixed:          make([]Issue, 0, len(issues)),
		ManualActionRequired: make([]Issue, 0, len(issues)),
		CheckErrors:          checkErrs,
	}
	for _, issue := range issues {
		switch {
		case issue.Fixed:
			report.IssuesFixed = append(report.IssuesFixed, issue)
		case requiresManualAction(issue):
			report.ManualActionRequired = append(report.ManualActionRequired, issue)
		}
	}
	report.Status, report.Stats = Aggregate(issues, totalChecks)
	return report
}

// Summary renders a one-line operator summary of the run.
func (r *HealthReport) Summary() string {
	return fmt.Sprintf("%s: %d found, %d fixed, %d manual",
		r.Status, r.Stats.IssuesFound, r.Stats.IssuesFixed, r.Stats.ManualRequired)
}
