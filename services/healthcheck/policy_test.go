// Copyright (C) 2025 FileHarbor Labs (ops@fileharbor.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package healthcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityPolicyComplete(t *testing.T) {
	for kind, p := range severityPolicy {
		assert.NotEmpty(t, p.Category, "finding %s has no category", kind)
		assert.GreaterOrEqual(t, p.Severity, SeverityInfo, "finding %s", kind)
		assert.LessOrEqual(t, p.Severity, SeverityCritical, "finding %s", kind)
	}
}

func TestAutoFixableFindingsAreCleanups(t *testing.T) {
	// Only deterministic delete/null-out repairs may be auto-fixable.
	fixable := map[findingKind]bool{
		findingDanglingAgentRefs:     true,
		findingOrphanedFiles:         true,
		findingOrphanedNotifications: true,
		findingInvalidFiles:          true,
		findingStaleNotifications:    true,
		findingStaleLogs:             true,
	}
	for kind, p := range severityPolicy {
		assert.Equal(t, fixable[kind], p.AutoFixable, "finding %s", kind)
	}
}

func TestNewIssueClassifiesFromPolicy(t *testing.T) {
	issue := newIssue(findingNoAdmins, "users", "no admin accounts exist")

	assert.Equal(t, SeverityCritical, issue.Severity)
	assert.Equal(t, "Security", issue.Category)
	assert.False(t, issue.AutoFixable)
	assert.False(t, issue.Fixed)
	assert.Equal(t, "users", issue.Location)
}
