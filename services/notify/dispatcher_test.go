// Copyright (C) 2025 FileHarbor Labs (ops@fileharbor.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package notify

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fileharbor/sentinel/services/healthcheck"
	"github.com/fileharbor/sentinel/services/monitor"
)

type fakeSender struct {
	sent []Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeGate struct {
	due      bool
	err      error
	consults int
}

func (f *fakeGate) Due(string) (bool, error) {
	f.consults++
	return f.due, f.err
}

func healthyReport() *healthcheck.HealthReport {
	return &healthcheck.HealthReport{
		Timestamp: time.Now(),
		Status:    healthcheck.StatusHealthy,
		Stats:     healthcheck.Stats{TotalChecks: 7},
	}
}

func reportWithIssues() *healthcheck.HealthReport {
	issue := healthcheck.Issue{
		Severity:    healthcheck.SeverityCritical,
		Category:    "Security",
		Description: "no admin accounts exist",
		Location:    "users",
	}
	return &healthcheck.HealthReport{
		Timestamp:            time.Now(),
		Status:               healthcheck.StatusCritical,
		IssuesFound:          []healthcheck.Issue{issue},
		ManualActionRequired: []healthcheck.Issue{issue},
		Stats:                healthcheck.Stats{TotalChecks: 7, IssuesFound: 1, ManualRequired: 1},
	}
}

func TestIssuesSendAlertWithoutConsultingCadence(t *testing.T) {
	sender := &fakeSender{}
	gate := &fakeGate{due: true}
	d := NewDispatcher(sender, gate, "ops@harbor.io", slog.Default())

	decision, err := d.DispatchHealth(context.Background(), reportWithIssues())
	require.NoError(t, err)
	assert.Equal(t, DecisionAlert, decision)
	assert.Zero(t, gate.consults, "alert path must not touch the cadence gate")

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "ops@harbor.io", msg.To)
	assert.Contains(t, msg.Subject, "CRITICAL")
	assert.Contains(t, msg.HTML, "no admin accounts exist")
	assert.Contains(t, msg.HTML, "#dc2626")
}

func TestHealthyAndDueSendsRoutineStatus(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, &fakeGate{due: true}, "ops@harbor.io", slog.Default())

	decision, err := d.DispatchHealth(context.Background(), healthyReport())
	require.NoError(t, err)
	assert.Equal(t, DecisionStatus, decision)

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Subject, "all healthy")
	assert.NotContains(t, sender.sent[0].Subject, "alert")
}

func TestHealthyAndNotDueSuppresses(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, &fakeGate{due: false}, "ops@harbor.io", slog.Default())

	decision, err := d.DispatchHealth(context.Background(), healthyReport())
	require.NoError(t, err)
	assert.Equal(t, DecisionSuppressed, decision)
	assert.Empty(t, sender.sent)
}

func TestCheckErrorsAloneTriggerAlert(t *testing.T) {
	sender := &fakeSender{}
	gate := &fakeGate{due: false}
	d := NewDispatcher(sender, gate, "ops@harbor.io", slog.Default())

	report := healthyReport()
	report.CheckErrors = []string{"connectivity: dial timeout"}

	decision, err := d.DispatchHealth(context.Background(), report)
	require.NoError(t, err)
	assert.Equal(t, DecisionAlert, decision)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].HTML, "dial timeout")
}

func TestSendFailureIsReturnedButClassified(t *testing.T) {
	sender := &fakeSender{err: ErrSendFailed}
	d := NewDispatcher(sender, &fakeGate{due: true}, "ops@harbor.io", slog.Default())

	decision, err := d.DispatchHealth(context.Background(), reportWithIssues())
	assert.Equal(t, DecisionAlert, decision)
	assert.ErrorIs(t, err, ErrSendFailed)
}

func TestGateFailureSuppressesInsteadOfSpamming(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, &fakeGate{err: errors.New("badger closed")}, "ops@harbor.io", slog.Default())

	decision, err := d.DispatchHealth(context.Background(), healthyReport())
	require.NoError(t, err)
	assert.Equal(t, DecisionSuppressed, decision)
	assert.Empty(t, sender.sent)
}

func TestMonitorAlertAndStatusPaths(t *testing.T) {
	sender := &fakeSender{}
	gate := &fakeGate{due: true}
	d := NewDispatcher(sender, gate, "ops@harbor.io", slog.Default())

	down := &monitor.Result{
		Timestamp:  time.Now(),
		SiteHealth: monitor.EndpointHealth{OK: false, Status: 503, Message: "unexpected status 503"},
		Alerts:     []string{"site health endpoint returned 503"},
	}
	decision, err := d.DispatchMonitor(context.Background(), down)
	require.NoError(t, err)
	assert.Equal(t, DecisionAlert, decision)
	assert.Zero(t, gate.consults)

	up := &monitor.Result{
		Timestamp:    time.Now(),
		SiteHealth:   monitor.EndpointHealth{OK: true, Message: "site reachable"},
		DBHealth:     monitor.EndpointHealth{OK: true, Message: "database connected"},
		BackupStatus: monitor.BackupStatus{Success: true, FileName: "harbor-backup-20260829-020000.tar.gz"},
	}
	decision, err = d.DispatchMonitor(context.Background(), up)
	require.NoError(t, err)
	assert.Equal(t, DecisionStatus, decision)
	assert.Equal(t, 1, gate.consults)
	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[1].HTML, "harbor-backup-")
}

func TestCriticalFailureSwallowsSendError(t *testing.T) {
	sender := &fakeSender{err: ErrSendFailed}
	d := NewDispatcher(sender, &fakeGate{}, "ops@harbor.io", slog.Default())

	decision := d.DispatchCriticalFailure(context.Background(), "healthcheck", errors.New("store gone"))
	assert.Equal(t, DecisionCriticalFailure, decision)
}
