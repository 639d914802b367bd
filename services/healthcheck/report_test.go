// Copyright (C) 2025 FileHarbor Labs (ops@fileharbor.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package healthcheck

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateStatusOrdinal(t *testing.T) {
	tests := []struct {
		name   string
		issues []Issue
		want   Status
	}{
		{"no issues", nil, StatusHealthy},
		{"one warning", []Issue{{Severity: SeverityWarning}}, StatusIssuesFound},
		{"info only", []Issue{{Severity: SeverityInfo}}, StatusIssuesFound},
		{"critical wins", []Issue{
			{Severity: SeverityWarning},
			{Severity: SeverityCritical},
			{Severity: SeverityInfo},
		}, StatusCritical},
		{"fixed critical still critical", []Issue{
			{Severity: SeverityCritical, AutoFixable: true, Fixed: true},
		}, StatusCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, stats := Aggregate(tt.issues, 7)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, 7, stats.TotalChecks)
			assert.Equal(t, len(tt.issues), stats.IssuesFound)
		})
	}
}

func TestBuildReportPartition(t *testing.T) {
	issues := []Issue{
		{Severity: SeverityWarning, AutoFixable: true, Fixed: true},   // fixed
		{Severity: SeverityWarning, AutoFixable: true, Fixed: false},  // failed fix -> manual
		{Severity: SeverityCritical, AutoFixable: false},              // manual
		{Severity: SeverityWarning, AutoFixable: false},               // manual
		{Severity: SeverityInfo, AutoFixable: false},                  // informational only
	}
	report := buildReport(time.Now(), issues, nil, 7)

	require.Len(t, report.IssuesFixed, 1)
	require.Len(t, report.ManualActionRequired, 3)

	// Stats are pure derivations of the buckets.
	assert.Equal(t, len(report.IssuesFixed), report.Stats.IssuesFixed)
	assert.Equal(t, len(report.ManualActionRequired), report.Stats.ManualRequired)
	assert.Equal(t, len(issues), report.Stats.IssuesFound)

	// Fixed bucket only ever holds fixed auto-fixable issues.
	for _, issue := range report.IssuesFixed {
		assert.True(t, issue.AutoFixable)
		assert.True(t, issue.Fixed)
	}
	// No issue appears in both buckets.
	for _, fixed := range report.IssuesFixed {
		for _, manual := range report.ManualActionRequired {
			assert.NotEqual(t, fixed, manual)
		}
	}
	assert.Equal(t, StatusCritical, report.Status)
}

func TestSeverityAndStatusWireNames(t *testing.T) {
	assert.Equal(t, "INFO", SeverityInfo.String())
	assert.Equal(t, "CRITICAL", SeverityCritical.String())
	assert.Equal(t, "ISSUES_FOUND", StatusIssuesFound.String())

	b, err := SeverityError.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `"ERROR"`, string(b))
}

func TestSummary(t *testing.T) {
	report := buildReport(time.Now(), []Issue{
		{Severity: SeverityWarning, AutoFixable: true, Fixed: true},
	}, nil, 7)
	assert.Equal(t, "ISSUES_FOUND: 1 found, 1 fixed, 0 manual", report.Summary())
}
