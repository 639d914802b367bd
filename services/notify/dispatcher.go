// Copyright (C) 2025 FileHarbor Labs (ops@fileharbor.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package notify

import (
	"context"
	"log/slog"

	"github.com/fileharbor/sentinel/services/healthcheck"
	"github.com/fileharbor/sentinel/services/monitor"
)

// Cadence purposes. Each bot's routine notice has its own timestamp key.
const (
	PurposeHealthStatus  = "healthcheck/routine-status"
	PurposeMonitorStatus = "monitor/routine-status"
)

// Decision records which message kind a dispatch produced.
type Decision string

const (
	DecisionAlert           Decision = "alert"
	DecisionStatus          Decision = "status"
	DecisionSuppressed      Decision = "suppressed"
	DecisionCriticalFailure Decision = "critical_failure"
)

// Gate is the cadence decision the dispatcher consults for routine notices.
// Implemented by cadence.Gate.
type Gate interface {
	Due(purpose string) (bool, error)
}

// Dispatcher turns reports into operator messages.
//
// Decision precedence, first match wins:
//
//  1. Pipeline-level failure → critical-failure message, cadence ignored.
//  2. Any finding → immediate alert, cadence ignored.
//  3. Cadence due → routine "all healthy" status.
//  4. Otherwise → nothing.
//
// The returned error is always a send failure (ErrSendFailed); callers log
// and count it but never fail the run over it.
type Dispatcher struct {
	sender Sender
	gate   Gate
	to     string
	log    *slog.Logger
}

// NewDispatcher builds a Dispatcher delivering to the configured operator
// address.
func NewDispatcher(sender Sender, gate Gate, to string, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{sender: sender, gate: gate, to: to, log: log}
}

// DispatchHealth decides and delivers for a completed health report.
func (d *Dispatcher) DispatchHealth(ctx context.Context, report *healthcheck.HealthReport) (Decision, error) {
	if len(report.IssuesFound) > 0 || len(report.CheckErrors) > 0 {
		// Alerts never consult the cadence gate, so an alert-heavy week
		// does not push back the next routine notice.
		err := d.send(ctx, Message{
			To:      d.to,
			Subject: "[Harbor] Health check: " + report.Status.String(),
			HTML:    renderHealthAlert(report),
		})
		return DecisionAlert, err
	}

	due, err := d.gate.Due(PurposeHealthStatus)
	if err != nil {
		d.log.Error("cadence gate unavailable, suppressing routine notice", "error", err)
		return DecisionSuppressed, nil
	}
	if !due {
		return DecisionSuppressed, nil
	}
	sendErr := d.send(ctx, Message{
		To:      d.to,
		Subject: "[Harbor] Health check: all healthy",
		HTML:    renderRoutineStatus(report),
	})
	return DecisionStatus, sendErr
}

// DispatchMonitor decides and delivers for a completed monitoring result.
func (d *Dispatcher) DispatchMonitor(ctx context.Context, result *monitor.Result) (Decision, error) {
	if result.HasAlerts() {
		err := d.send(ctx, Message{
			To:      d.to,
			Subject: "[Harbor] Monitoring alert",
			HTML:    renderMonitorAlert(result),
		})
		return DecisionAlert, err
	}

	due, err := d.gate.Due(PurposeMonitorStatus)
	if err != nil {
		d.log.Error("cadence gate unavailable, suppressing routine notice", "error", err)
		return DecisionSuppressed, nil
	}
	if !due {
		return DecisionSuppressed, nil
	}
	sendErr := d.send(ctx, Message{
		To:      d.to,
		Subject: "[Harbor] Monitoring: all systems up",
		HTML:    renderMonitorStatus(result),
	})
	return DecisionStatus, sendErr
}

// DispatchCriticalFailure reports that a bot's run itself crashed. Best
// effort only: a send failure here is logged and swallowed, because the HTTP
// response already carries the underlying error to the scheduler.
func (d *Dispatcher) DispatchCriticalFailure(ctx context.Context, bot string, runErr error) Decision {
	err := d.send(ctx, Message{
		To:      d.to,
		Subject: "[Harbor] CRITICAL: " + bot + " bot failed",
		HTML:    renderCriticalFailure(bot, runErr),
	})
	if err != nil {
		d.log.Error("critical-failure notice could not be delivered",
			"bot", bot, "run_error", runErr, "send_error", err)
	}
	return DecisionCriticalFailure
}

func (d *Dispatcher) send(ctx context.Context, msg Message) error {
	if err := d.sender.Send(ctx, msg); err != nil {
		d.log.Error("notification send failed", "subject", msg.Subject, "error", err)
		return err
	}
	d.log.Info("notification sent", "subject", msg.Subject, "to", d.to)
	return nil
}
