// Copyright (C) 2025 FileHarbor Labs (ops@fileharbor.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command sentinel starts the Harbor health bot HTTP service.
//
// Sentinel hosts two bots behind trigger endpoints: the health-check bot,
// which diagnoses and repairs the Harbor application database, and the
// monitor bot, which probes the deployed site and triggers off-site backups.
// A scheduler (cron, Cloud Scheduler, or similar) POSTs to the endpoints;
// sentinel does no scheduling of its own.
//
// # Configuration
//
// Configuration is read from a YAML file; the path comes from the first
// command-line argument, the SENTINEL_CONFIG environment variable, or the
// default /etc/sentinel/sentinel.yaml. A default file is written on first
// run. Secrets (SENTINEL_RELAY_KEY, SENTINEL_BACKUP_KEY) override the file.
//
// # Usage
//
//	# Build
//	go build -o sentinel ./cmd/sentinel
//
//	# Run
//	./sentinel /etc/sentinel/sentinel.yaml
package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fileharbor/sentinel/cmd/sentinel/config"
	"github.com/fileharbor/sentinel/pkg/logging"
	"github.com/fileharbor/sentinel/services/cadence"
	"github.com/fileharbor/sentinel/services/healthcheck"
	"github.com/fileharbor/sentinel/services/monitor"
	"github.com/fileharbor/sentinel/services/notify"
	"github.com/fileharbor/sentinel/services/sentinel/observability"
	"github.com/fileharbor/sentinel/services/sentinel/routes"
	"github.com/fileharbor/sentinel/services/store"
)

func main() {
	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(logging.Config{
		Level:   cfg.Logging.Level,
		Service: "sentinel",
		JSON:    cfg.Logging.JSON,
	})
	slog.SetDefault(logger)

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open application database: %v", err)
	}
	defer st.Close()

	cadenceDB, err := cadence.OpenDB(cfg.Cadence.Path, logger)
	if err != nil {
		log.Fatalf("Failed to open cadence state: %v", err)
	}
	defer cadenceDB.Close()
	gate := cadence.NewGate(cadenceDB, cfg.CadenceInterval(), logger)

	mailer := notify.NewRelayMailer(cfg.RelayConfig(), http.DefaultClient)
	dispatcher := notify.NewDispatcher(mailer, gate, cfg.Notify.To, logger)

	checker := healthcheck.NewChecker(st, cfg.HealthcheckConfig(), logger)
	pipeline := healthcheck.NewPipeline(checker, logger)
	mon := monitor.New(cfg.MonitorBotConfig(), st, http.DefaultClient, logger)

	metrics := observability.New(prometheus.DefaultRegisterer)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	routes.SetupRoutes(router, routes.Deps{
		Pipeline:   pipeline,
		Monitor:    mon,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Log:        logger,
	})

	logger.Info("Starting sentinel",
		"port", cfg.Server.Port,
		"database", cfg.Database.Path,
		"cadence_interval", cfg.CadenceInterval().String(),
	)

	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Sentinel server error: %v", err)
	}
}
