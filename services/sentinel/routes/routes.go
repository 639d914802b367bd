// Copyright (C) 2025 FileHarbor Labs (ops@fileharbor.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fileharbor/sentinel/services/healthcheck"
	"github.com/fileharbor/sentinel/services/monitor"
	"github.com/fileharbor/sentinel/services/notify"
	"github.com/fileharbor/sentinel/services/sentinel/handlers"
	"github.com/fileharbor/sentinel/services/sentinel/observability"
)

// Deps carries everything the route handlers need.
type Deps struct {
	Pipeline   *healthcheck.Pipeline
	Monitor    *monitor.Monitor
	Dispatcher *notify.Dispatcher
	Metrics    *observability.Metrics
	Log        *slog.Logger
}

// SetupRoutes registers the bot trigger endpoints plus the service's own
// liveness and metrics surfaces.
func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		bots := v1.Group("/bots")
		{
			bots.POST("/healthcheck", handlers.RunHealthCheck(
				deps.Pipeline, deps.Dispatcher, deps.Metrics, deps.Log))
			bots.POST("/monitor", handlers.RunMonitor(
				deps.Monitor, deps.Dispatcher, deps.Metrics, deps.Log))
		}
	}
}
