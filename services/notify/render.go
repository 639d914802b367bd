// Copyright (C) 2025 FileHarbor Labs (ops@fileharbor.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/fileharbor/sentinel/services/healthcheck"
	"github.com/fileharbor/sentinel/services/monitor"
)

// severityColor maps a finding's severity to the accent color used in the
// rendered message.
func severityColor(s healthcheck.Severity) string {
	switch s {
	case healthcheck.SeverityCritical:
		return "#dc2626"
	case healthcheck.SeverityError:
		return "#ea580c"
	case healthcheck.SeverityWarning:
		return "#d97706"
	default:
		return "#2563eb"
	}
}

func statusColor(s healthcheck.Status) string {
	switch s {
	case healthcheck.StatusCritical:
		return "#dc2626"
	case healthcheck.StatusIssuesFound:
		return "#d97706"
	default:
		return "#16a34a"
	}
}

// renderHealthAlert renders the immediate-alert body for a health report
// with findings.
func renderHealthAlert(report *healthcheck.HealthReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(
		`<h2 style="color:%s">Harbor health check: %s</h2>`,
		statusColor(report.Status), report.Status))
	b.WriteString(fmt.Sprintf(
		"<p>%d issues found, %d auto-fixed, %d need manual action.</p>",
		report.Stats.IssuesFound, report.Stats.IssuesFixed, report.Stats.ManualRequired))

	writeIssueList(&b, "Fixed automatically", report.IssuesFixed)
	writeIssueList(&b, "Manual action required", report.ManualActionRequired)

	var informational []healthcheck.Issue
	for _, issue := range report.IssuesFound {
		if !issue.Fixed && !issue.AutoFixable && issue.Severity < healthcheck.SeverityWarning {
			informational = append(informational, issue)
		}
	}
	writeIssueList(&b, "Informational", informational)

	if len(report.CheckErrors) > 0 {
		b.WriteString("<h3>Checks that could not run</h3><ul>")
		for _, msg := range report.CheckErrors {
			b.WriteString("<li>" + html.EscapeString(msg) + "</li>")
		}
		b.WriteString("</ul>")
	}
	return b.String()
}

func writeIssueList(b *strings.Builder, title string, issues []healthcheck.Issue) {
	if len(issues) == 0 {
		return
	}
	b.WriteString("<h3>" + title + "</h3><ul>")
	for _, issue := range issues {
		b.WriteString(fmt.Sprintf(
			`<li><strong style="color:%s">[%s]</strong> %s: %s (%s)</li>`,
			severityColor(issue.Severity), issue.Severity,
			html.EscapeString(issue.Category),
			html.EscapeString(issue.Description),
			html.EscapeString(issue.Location)))
	}
	b.WriteString("</ul>")
}

// renderRoutineStatus renders the cadence-gated "all healthy" notice.
func renderRoutineStatus(report *healthcheck.HealthReport) string {
	return fmt.Sprintf(
		`<h2 style="color:#16a34a">Harbor health check: all healthy</h2>`+
			"<p>All %d checks passed on %s. No issues found.</p>",
		report.Stats.TotalChecks, report.Timestamp.Format("2006-01-02 15:04 MST"))
}

// renderMonitorAlert renders the alert body for a monitoring result with
// failed conditions.
func renderMonitorAlert(result *monitor.Result) string {
	var b strings.Builder
	b.WriteString(`<h2 style="color:#dc2626">Harbor monitoring alert</h2><ul>`)
	for _, alert := range result.Alerts {
		b.WriteString("<li>" + html.EscapeString(alert) + "</li>")
	}
	b.WriteString("</ul>")

	b.WriteString(fmt.Sprintf("<p>Site: %s<br>Database: %s<br>Backup: %s</p>",
		html.EscapeString(result.SiteHealth.Message),
		html.EscapeString(result.DBHealth.Message),
		html.EscapeString(result.BackupStatus.Message)))

	if len(result.Errors) > 0 {
		b.WriteString("<h3>Recent errors</h3><ul>")
		for _, e := range result.Errors {
			b.WriteString("<li>" + html.EscapeString(e) + "</li>")
		}
		b.WriteString("</ul>")
	}
	return b.String()
}

// renderMonitorStatus renders the routine monitoring notice.
func renderMonitorStatus(result *monitor.Result) string {
	backup := "no backup configured"
	if result.BackupStatus.FileName != "" {
		backup = "backup " + html.EscapeString(result.BackupStatus.FileName) + " triggered"
	}
	return fmt.Sprintf(
		`<h2 style="color:#16a34a">Harbor monitoring: all systems up</h2>`+
			"<p>Site and database reachable; %s.</p>", backup)
}

// renderCriticalFailure renders the message sent when a bot itself crashed.
func renderCriticalFailure(bot string, runErr error) string {
	return fmt.Sprintf(
		`<h2 style="color:#dc2626">Harbor %s bot failed to run</h2>`+
			"<p>The diagnostic run itself crashed; no report is available.</p>"+
			"<pre>%s</pre>",
		html.EscapeString(bot), html.EscapeString(runErr.Error()))
}
