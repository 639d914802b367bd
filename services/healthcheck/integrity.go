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
	"strings"
)

// CheckReferentialIntegrity scans the three parent/child relations for
// dangling references:
//
//	users.agent_id      → agents         (repair: null out the reference)
//	files.folder_id     → folders        (repair: delete the orphaned file)
//	notifications.user_id → users        (repair: delete the orphaned row)
//
// Each finding is auto-fixable and remediated inline. For the null-out
// repair the prior parent identity is recorded in the issue description
// before it is erased from the row.
func (c *Checker) CheckReferentialIntegrity(ctx context.Context) ([]Issue, error) {
	var issues []Issue

	orphanUsers, err := c.store.UsersWithDanglingAgent(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan users.agent_id: %w", err)
	}
	if len(orphanUsers) > 0 {
		ids := make([]string, 0, len(orphanUsers))
		priorAgents := make(map[string]bool, 2)
		for _, u := range orphanUsers {
			ids = append(ids, u.ID)
			if u.AgentID != nil {
				priorAgents[*u.AgentID] = true
			}
		}
		issue := newIssue(findingDanglingAgentRefs, "users",
			fmt.Sprintf("%d users reference deleted agents (%s)",
				len(orphanUsers), strings.Join(keys(priorAgents), ", ")))
		c.remediate(&issue, func() error {
			return c.store.ClearUserAgents(ctx, ids)
		})
		issues = append(issues, issue)
	}

	orphanFiles, err := c.store.FilesWithDanglingFolder(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan files.folder_id: %w", err)
	}
	if len(orphanFiles) > 0 {
		ids := make([]string, 0, len(orphanFiles))
		for _, f := range orphanFiles {
			ids = append(ids, f.ID)
		}
		issue := newIssue(findingOrphanedFiles, "files",
			fmt.Sprintf("%d files belong to deleted folders", len(orphanFiles)))
		c.remediate(&issue, func() error {
			return c.store.DeleteFiles(ctx, ids)
		})
		issues = append(issues, issue)
	}

	orphanNotes, err := c.store.NotificationsWithDanglingUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan notifications.user_id: %w", err)
	}
	if len(orphanNotes) > 0 {
		ids := make([]string, 0, len(orphanNotes))
		for _, n := range orphanNotes {
			ids = append(ids, n.ID)
		}
		issue := newIssue(findingOrphanedNotifications, "notifications",
			fmt.Sprintf("%d notifications address deleted users", len(orphanNotes)))
		c.remediate(&issue, func() error {
			return c.store.DeleteNotifications(ctx, ids)
		})
		issues = append(issues, issue)
	}

	return issues, nil
}

// CheckResourceIntegrity finds file rows with empty required fields (name or
// storage URL) and deletes them, and reports duplicate storage URLs as an
// informational finding (duplicates can be legitimate after a copy, so no
// automatic repair).
func (c *Checker) CheckResourceIntegrity(ctx context.Context) ([]Issue, error) {
	var issues []Issue

	invalid, err := c.store.FilesWithMissingFields(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan files for missing fields: %w", err)
	}
	if len(invalid) > 0 {
		ids := make([]string, 0, len(invalid))
		for _, f := range invalid {
			ids = append(ids, f.ID)
		}
		issue := newIssue(findingInvalidFiles, "files",
			fmt.Sprintf("%d files missing a name or storage URL", len(invalid)))
		c.remediate(&issue, func() error {
			return c.store.DeleteFiles(ctx, ids)
		})
		issues = append(issues, issue)
	}

	dups, err := c.store.DuplicateFileURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan duplicate storage URLs: %w", err)
	}
	if len(dups) > 0 {
		issues = append(issues, newIssue(findingDuplicateStorageURLs, "files",
			fmt.Sprintf("%d storage URLs are shared by multiple files", len(dups))))
	}

	return issues, nil
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
