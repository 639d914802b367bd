// Copyright (C) 2025 FileHarbor Labs (ops@fileharbor.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fileharbor/sentinel/services/cadence"
	"github.com/fileharbor/sentinel/services/healthcheck"
	"github.com/fileharbor/sentinel/services/monitor"
	"github.com/fileharbor/sentinel/services/notify"
	"github.com/fileharbor/sentinel/services/sentinel/observability"
	"github.com/fileharbor/sentinel/services/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type nopSender struct{}

func (nopSender) Send(context.Context, notify.Message) error { return nil }

func testDeps(t *testing.T) Deps {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	db, err := cadence.OpenInMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	gate := cadence.NewGate(db, 3*24*time.Hour, log)
	return Deps{
		Pipeline:   healthcheck.NewPipeline(healthcheck.NewChecker(s, healthcheck.Config{}, log), log),
		Monitor:    monitor.New(monitor.Config{}, s, nil, log),
		Dispatcher: notify.NewDispatcher(nopSender{}, gate, "ops@harbor.io", log),
		Metrics:    observability.New(prometheus.NewRegistry()),
		Log:        log,
	}
}

func TestSetupRoutesRegistersAllEndpoints(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, testDeps(t))

	expected := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"POST", "/v1/bots/healthcheck"},
		{"POST", "/v1/bots/monitor"},
	}

	routes := router.Routes()
	for _, want := range expected {
		found := false
		for _, r := range routes {
			if r.Method == want.method && r.Path == want.path {
				found = true
				break
			}
		}
		assert.True(t, found, "route %s %s should be registered", want.method, want.path)
	}
}

func TestLivenessEndpoint(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, testDeps(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
