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

// CheckAccountIntegrity looks at the user and notification tables:
// accounts with no contact email (manual), duplicate email addresses
// (critical, manual; deduplication needs a human), and a backlog of old
// read notifications (auto-cleaned once it crosses the configured count).
func (c *Checker) CheckAccountIntegrity(ctx context.Context) ([]Issue, error) {
	var issues []Issue

	missing, err := c.store.CountUsersMissingEmail(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users missing email: %w", err)
	}
	if missing > 0 {
		issues = append(issues, newIssue(findingUsersMissingEmail, "users",
			fmt.Sprintf("%d accounts have no contact email", missing)))
	}

	dups, err := c.store.DuplicateEmails(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan duplicate emails: %w", err)
	}
	if len(dups) > 0 {
		issues = append(issues, newIssue(findingDuplicateEmails, "users",
			fmt.Sprintf("%d email addresses are shared by multiple accounts", len(dups))))
	}

	cutoff := time.Now().Add(-c.cfg.StaleNotificationAge)
	stale, err := c.store.CountReadNotificationsOlderThan(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("count stale notifications: %w", err)
	}
	if stale >= c.cfg.StaleNotificationCount {
		issue := newIssue(findingStaleNotifications, "notifications",
			fmt.Sprintf("%d read notifications older than %s",
				stale, c.cfg.StaleNotificationAge))
		c.remediate(&issue, func() error {
			_, err := c.store.DeleteReadNotificationsOlderThan(ctx, cutoff)
			return err
		})
		issues = append(issues, issue)
	}

	return issues, nil
}

// CheckAccessControl audits the privileged-account posture. Zero admins
// means the platform is unadministrable and is always critical; an admin set
// above the configured maximum widens the attack surface. Both need a human.
func (c *Checker) CheckAccessControl(ctx context.Context) ([]Issue, error) {
	admins, err := c.store.CountAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("count admins: %w", err)
	}
	switch {
	case admins == 0:
		return []Issue{newIssue(findingNoAdmins, "users",
			"no admin accounts exist; the platform cannot be administered")}, nil
	case admins > c.cfg.MaxAdmins:
		return []Issue{newIssue(findingExcessAdmins, "users",
			fmt.Sprintf("%d admin accounts exceed the expected maximum of %d",
				admins, c.cfg.MaxAdmins))}, nil
	}
	return nil, nil
}
