// Copyright (C) 2025 FileHarbor Labs (ops@fileharbor.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the sentinel bots.
//
// Metrics are exposed on /metrics. The notification counters exist so an
// operator can see in dashboards that a report silently failed to deliver:
// send failures never fail a run, so this is their only loud surface besides
// the logs.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sentinel"

// Metrics holds all Prometheus instruments for the diagnostic bots.
// Initialize once at startup; all operations are thread-safe.
type Metrics struct {
	// RunsTotal counts bot invocations.
	// Labels: bot (healthcheck, monitor), status (success, failed)
	RunsTotal *prometheus.CounterVec

	// RunDurationSeconds measures end-to-end run time.
	// Labels: bot
	RunDurationSeconds *prometheus.HistogramVec

	// IssuesTotal counts health-check findings by outcome.
	// Labels: outcome (found, fixed, manual)
	IssuesTotal *prometheus.CounterVec

	// CheckFailuresTotal counts checks that errored and were isolated.
	CheckFailuresTotal prometheus.Counter

	// NotificationsTotal counts dispatch outcomes.
	// Labels: bot, decision (alert, status, suppressed, critical_failure),
	// result (sent, send_failed, none)
	NotificationsTotal *prometheus.CounterVec
}

// New registers all sentinel metrics on the given registerer. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Bot invocations by outcome.",
		}, []string{"bot", "status"}),
		RunDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "End-to-end bot run duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"bot"}),
		IssuesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issues_total",
			Help:      "Health-check findings by outcome.",
		}, []string{"outcome"}),
		CheckFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_failures_total",
			Help:      "Checks that errored and were isolated from the run.",
		}),
		NotificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification dispatch decisions and delivery results.",
		}, []string{"bot", "decision", "result"}),
	}
}
