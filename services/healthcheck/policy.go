// Copyright (C) 2025 FileHarbor Labs (ops@fileharbor.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package healthcheck

// findingKind names one condition a check can detect. Severity, category,
// and fixability live in the policy table below, not in the check code, so
// reclassifying a finding is a one-line data change.
type findingKind string

const (
	findingStoreUnreachable      findingKind = "store_unreachable"
	findingPoolSaturation        findingKind = "pool_saturation"
	findingLargeTable            findingKind = "large_table"
	findingDanglingAgentRefs     findingKind = "dangling_agent_refs"
	findingOrphanedFiles         findingKind = "orphaned_files"
	findingOrphanedNotifications findingKind = "orphaned_notifications"
	findingInvalidFiles          findingKind = "invalid_files"
	findingDuplicateStorageURLs  findingKind = "duplicate_storage_urls"
	findingUsersMissingEmail     findingKind = "users_missing_email"
	findingDuplicateEmails       findingKind = "duplicate_emails"
	findingStaleNotifications    findingKind = "stale_notifications"
	findingCriticalLogBurst      findingKind = "critical_log_burst"
	findingStaleLogs             findingKind = "stale_logs"
	findingSlowOperations        findingKind = "slow_operations"
	findingNoAdmins              findingKind = "no_admins"
	findingExcessAdmins          findingKind = "excess_admins"
)

const (
	categoryConnectivity = "Connectivity"
	categoryReferential  = "Referential Integrity"
	categoryResource     = "Resource Integrity"
	categoryAccounts     = "Account Integrity"
	categoryAuditLogs    = "Audit Logs"
	categoryPerformance  = "Performance"
	categorySecurity     = "Security"
)

type findingPolicy struct {
	Severity    Severity
	Category    string
	AutoFixable bool
}

// severityPolicy is the single source of truth for how each finding is
// classified. Checks supply the evidence and, where AutoFixable, the
// corrective mutation.
var severityPolicy = map[findingKind]findingPolicy{
	findingStoreUnreachable:      {SeverityCritical, categoryConnectivity, false},
	findingPoolSaturation:        {SeverityWarning, categoryConnectivity, false},
	findingLargeTable:            {SeverityWarning, categoryConnectivity, false},
	findingDanglingAgentRefs:     {SeverityWarning, categoryReferential, true},
	findingOrphanedFiles:         {SeverityWarning, categoryReferential, true},
	findingOrphanedNotifications: {SeverityWarning, categoryReferential, true},
	findingInvalidFiles:          {SeverityWarning, categoryResource, true},
	findingDuplicateStorageURLs:  {SeverityInfo, categoryResource, false},
	findingUsersMissingEmail:     {SeverityWarning, categoryAccounts, false},
	findingDuplicateEmails:       {SeverityCritical, categoryAccounts, false},
	findingStaleNotifications:    {SeverityInfo, categoryAccounts, true},
	findingCriticalLogBurst:      {SeverityError, categoryAuditLogs, false},
	findingStaleLogs:             {SeverityWarning, categoryAuditLogs, true},
	findingSlowOperations:        {SeverityWarning, categoryPerformance, false},
	findingNoAdmins:              {SeverityCritical, categorySecurity, false},
	findingExcessAdmins:          {SeverityWarning, categorySecurity, false},
}

// newIssue builds an Issue classified by the policy table.
func newIssue(kind findingKind, location, description string) Issue {
	p := severityPolicy[kind]
	return Issue{
		Severity:    p.Severity,
		Category:    p.Category,
		Description: description,
		Location:    location,
		AutoFixable: p.AutoFixable,
	}
}
