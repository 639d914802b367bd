// Copyright (C) 2025 FileHarbor Labs (ops@fileharbor.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers exposes the two diagnostic bots as HTTP-triggerable
// functions. The external scheduler POSTs with an empty body; the response
// is {success, report|results} with 200, or {success:false, error} with 500
// when the run itself crashed.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fileharbor/sentinel/services/healthcheck"
	"github.com/fileharbor/sentinel/services/monitor"
	"github.com/fileharbor/sentinel/services/notify"
	"github.com/fileharbor/sentinel/services/sentinel/observability"
)

const (
	botHealthcheck = "healthcheck"
	botMonitor     = "monitor"
)

// HealthCheck is the service's own liveness endpoint (not to be confused
// with the health-check bot).
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RunHealthCheck triggers one run of the integrity/security scanner bot.
func RunHealthCheck(pipeline *healthcheck.Pipeline, dispatcher *notify.Dispatcher,
	metrics *observability.Metrics, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		report, err := runHealthPipeline(c.Request.Context(), pipeline)
		metrics.RunDurationSeconds.WithLabelValues(botHealthcheck).
			Observe(time.Since(started).Seconds())

		if err != nil {
			// Pipeline-level fault: critical-failure notice, failed response.
			// This path bypasses the cadence gate entirely.
			log.Error("health check pipeline failed", "error", err)
			metrics.RunsTotal.WithLabelValues(botHealthcheck, "failed").Inc()
			decision := dispatcher.DispatchCriticalFailure(c.Request.Context(), botHealthcheck, err)
			metrics.NotificationsTotal.WithLabelValues(botHealthcheck, string(decision), "sent").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   err.Error(),
			})
			return
		}

		metrics.RunsTotal.WithLabelValues(botHealthcheck, "success").Inc()
		metrics.IssuesTotal.WithLabelValues("found").Add(float64(report.Stats.IssuesFound))
		metrics.IssuesTotal.WithLabelValues("fixed").Add(float64(report.Stats.IssuesFixed))
		metrics.IssuesTotal.WithLabelValues("manual").Add(float64(report.Stats.ManualRequired))
		metrics.CheckFailuresTotal.Add(float64(len(report.CheckErrors)))

		decision, sendErr := dispatcher.DispatchHealth(c.Request.Context(), report)
		recordDispatch(metrics, botHealthcheck, decision, sendErr)

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"report":  report,
		})
	}
}

// RunMonitor triggers one run of the uptime/backup bot.
func RunMonitor(m *monitor.Monitor, dispatcher *notify.Dispatcher,
	metrics *observability.Metrics, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		result, err := runMonitor(c.Request.Context(), m)
		metrics.RunDurationSeconds.WithLabelValues(botMonitor).
			Observe(time.Since(started).Seconds())

		if err != nil {
			log.Error("monitor run failed", "error", err)
			metrics.RunsTotal.WithLabelValues(botMonitor, "failed").Inc()
			decision := dispatcher.DispatchCriticalFailure(c.Request.Context(), botMonitor, err)
			metrics.NotificationsTotal.WithLabelValues(botMonitor, string(decision), "sent").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   err.Error(),
			})
			return
		}

		metrics.RunsTotal.WithLabelValues(botMonitor, "success").Inc()
		decision, sendErr := dispatcher.DispatchMonitor(c.Request.Context(), result)
		recordDispatch(metrics, botMonitor, decision, sendErr)

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"results": result,
		})
	}
}

// runHealthPipeline converts a panic escaping the pipeline itself into a
// pipeline-level error, so the critical-failure path still fires.
func runHealthPipeline(ctx context.Context, p *healthcheck.Pipeline) (report *healthcheck.HealthReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			report = nil
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()
	return p.Run(ctx)
}

func runMonitor(ctx context.Context, m *monitor.Monitor) (result *monitor.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("monitor panic: %v", r)
		}
	}()
	return m.Run(ctx)
}

func recordDispatch(metrics *observability.Metrics, bot string, decision notify.Decision, sendErr error) {
	result := "sent"
	switch {
	case decision == notify.DecisionSuppressed:
		result = "none"
	case sendErr != nil:
		result = "send_failed"
	}
	metrics.NotificationsTotal.WithLabelValues(bot, string(decision), result).Inc()
}
