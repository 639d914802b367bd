// Copyright (C) 2025 FileHarbor Labs (ops@fileharbor.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package monitor implements the operational uptime/backup bot: it probes
// the public site and database health endpoints, scans the audit trail for
// recent errors, and triggers the nightly backup export. Its result is the
// structural sibling of healthcheck.HealthReport, oriented around uptime
// rather than data integrity, and it feeds the same notification dispatcher.
package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fileharbor/sentinel/services/store"
)

// Config points the bot at its external collaborators.
type Config struct {
	// SiteHealthURL is the public health endpoint (expects 200).
	SiteHealthURL string

	// DBHealthURL is the database health endpoint (expects
	// {"connected": true}).
	DBHealthURL string

	// ProbeTimeout bounds each outbound probe. A timeout is a failed
	// probe, not a hang. Default 10s.
	ProbeTimeout time.Duration

	// BackupURL is the authenticated backup-export API. Empty disables the
	// backup step.
	BackupURL string

	// BackupAPIKey authorizes the backup call.
	BackupAPIKey string

	// ErrorWindow and ErrorMax gate the recent-error scan: ErrorMax or more
	// error/critical audit entries inside the window raise an alert.
	ErrorWindow time.Duration
	ErrorMax    int64
}

func (c Config) withDefaults() Config {
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = 10 * time.Second
	}
	if c.ErrorWindow == 0 {
		c.ErrorWindow = 24 * time.Hour
	}
	if c.ErrorMax == 0 {
		c.ErrorMax = 10
	}
	return c
}

// EndpointHealth is the outcome of one reachability probe.
type EndpointHealth struct {
	OK      bool   `json:"ok"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
}

// BackupStatus is the outcome of the backup-export trigger. The export API
// only acknowledges the request; completion is not polled.
type BackupStatus struct {
	Success  bool   `json:"success"`
	FileName string `json:"fileName,omitempty"`
	Message  string `json:"message"`
}

// Result is the per-run aggregate for the uptime/backup bot.
type Result struct {
	Timestamp    time.Time      `json:"timestamp"`
	SiteHealth   EndpointHealth `json:"siteHealth"`
	DBHealth     EndpointHealth `json:"dbHealth"`
	Errors       []string       `json:"errors"`
	BackupStatus BackupStatus   `json:"backupStatus"`
	Alerts       []string       `json:"alerts"`
}

// HasAlerts reports whether any monitored condition failed.
func (r *Result) HasAlerts() bool {
	return len(r.Alerts) > 0
}

// Monitor is the uptime/backup bot.
type Monitor struct {
	cfg    Config
	store  *store.Store
	client *http.Client
	log    *slog.Logger
}

// New builds a Monitor. A nil client gets a default http.Client; the
// per-probe timeout comes from the config either way.
func New(cfg Config, s *store.Store, client *http.Client, log *slog.Logger) *Monitor {
	if client == nil {
		client = &http.Client{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{cfg: cfg.withDefaults(), store: s, client: client, log: log}
}

// Run executes one monitoring pass. Probe failures become alerts, never
// errors: the only error Run returns is a pipeline-level fault (context
// cancelled between steps).
func (m *Monitor) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		Timestamp: time.Now(),
		Errors:    []string{},
		Alerts:    []string{},
	}

	steps := []func(context.Context, *Result){
		m.checkSite,
		m.checkDB,
		m.scanErrors,
		m.triggerBackup,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("monitor run aborted: %w", err)
		}
		step(ctx, result)
	}

	m.log.Info("monitor run complete",
		"site_ok", result.SiteHealth.OK,
		"db_ok", result.DBHealth.OK,
		"backup_ok", result.BackupStatus.Success,
		"alerts", len(result.Alerts))
	return result, nil
}

func (m *Monitor) checkSite(ctx context.Context, result *Result) {
	status, _, err := m.probe(ctx, m.cfg.SiteHealthURL)
	if err != nil {
		result.SiteHealth = EndpointHealth{OK: false, Message: err.Error()}
		result.Alerts = append(result.Alerts, "site health check failed: "+err.Error())
		return
	}
	if status != http.StatusOK {
		result.SiteHealth = EndpointHealth{
			OK: false, Status: status,
			Message: fmt.Sprintf("unexpected status %d", status),
		}
		result.Alerts = append(result.Alerts,
			fmt.Sprintf("site health endpoint returned %d", status))
		return
	}
	result.SiteHealth = EndpointHealth{OK: true, Status: status, Message: "site reachable"}
}

func (m *Monitor) checkDB(ctx context.Context, result *Result) {
	status, body, err := m.probe(ctx, m.cfg.DBHealthURL)
	if err != nil {
		result.DBHealth = EndpointHealth{OK: false, Message: err.Error()}
		result.Alerts = append(result.Alerts, "db health check failed: "+err.Error())
		return
	}
	var payload struct {
		Connected bool `json:"connected"`
	}
	if status != http.StatusOK || json.Unmarshal(body, &payload) != nil || !payload.Connected {
		result.DBHealth = EndpointHealth{
			OK: false, Status: status,
			Message: "database reports disconnected",
		}
		result.Alerts = append(result.Alerts, "database health endpoint reports disconnected")
		return
	}
	result.DBHealth = EndpointHealth{OK: true, Status: status, Message: "database connected"}
}

func (m *Monitor) scanErrors(ctx context.Context, result *Result) {
	since := time.Now().Add(-m.cfg.ErrorWindow)
	var total int64
	for _, level := range []string{"error", "critical"} {
		n, err := m.store.CountLogsAtLevelSince(ctx, level, since)
		if err != nil {
			// A broken scan contributes nothing; the run continues.
			m.log.Error("error scan failed", "level", level, "error", err)
			return
		}
		if n > 0 {
			result.Errors = append(result.Errors,
				fmt.Sprintf("%d %s log entries in the last %s", n, level, m.cfg.ErrorWindow))
			total += n
		}
	}
	if total >= m.cfg.ErrorMax {
		result.Alerts = append(result.Alerts,
			fmt.Sprintf("%d error-level log entries in the last %s", total, m.cfg.ErrorWindow))
	}
}

func (m *Monitor) triggerBackup(ctx context.Context, result *Result) {
	if m.cfg.BackupURL == "" {
		result.BackupStatus = BackupStatus{Success: true, Message: "backup disabled"}
		return
	}
	fileName := fmt.Sprintf("harbor-backup-%s.tar.gz", time.Now().UTC().Format("20060102-150405"))
	payload, _ := json.Marshal(map[string]string{"fileName": fileName})

	ctx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BackupURL, bytes.NewReader(payload))
	if err != nil {
		result.BackupStatus = BackupStatus{Success: false, Message: err.Error()}
		result.Alerts = append(result.Alerts, "backup trigger failed: "+err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.cfg.BackupAPIKey)

	resp, err := m.client.Do(req)
	if err != nil {
		result.BackupStatus = BackupStatus{Success: false, Message: err.Error()}
		result.Alerts = append(result.Alerts, "backup trigger failed: "+err.Error())
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("backup API returned %d", resp.StatusCode)
		result.BackupStatus = BackupStatus{Success: false, FileName: fileName, Message: msg}
		result.Alerts = append(result.Alerts, msg)
		return
	}
	result.BackupStatus = BackupStatus{
		Success: true, FileName: fileName,
		Message: "backup export accepted",
	}
}

// probe issues one bounded GET and returns status and body.
func (m *Monitor) probe(ctx context.Context, url string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}
