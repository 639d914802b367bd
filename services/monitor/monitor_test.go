// Copyright (C) 2025 FileHarbor Labs (ops@fileharbor.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fileharbor/sentinel/services/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRunAllHealthy(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(site.Close)
	db := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"connected": true}`))
	}))
	t.Cleanup(db.Close)

	var gotAuth string
	var gotFile string
	backup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var body struct {
			FileName string `json:"fileName"`
		}
		require.NoError(t, jsonDecode(r, &body))
		gotFile = body.FileName
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(backup.Close)

	m := New(Config{
		SiteHealthURL: site.URL + "/api/health",
		DBHealthURL:   db.URL + "/api/health/db",
		BackupURL:     backup.URL,
		BackupAPIKey:  "secret-key",
	}, openTestStore(t), nil, slog.Default())

	result, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.SiteHealth.OK)
	assert.True(t, result.DBHealth.OK)
	assert.True(t, result.BackupStatus.Success)
	assert.Empty(t, result.Alerts)
	assert.False(t, result.HasAlerts())

	assert.Equal(t, "Bearer secret-key", gotAuth)
	assert.True(t, strings.HasPrefix(gotFile, "harbor-backup-"))
	assert.True(t, strings.HasSuffix(gotFile, ".tar.gz"))
	assert.Equal(t, gotFile, result.BackupStatus.FileName)
}

func TestRunSiteDownRaisesAlert(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(site.Close)
	db := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"connected": true}`))
	}))
	t.Cleanup(db.Close)

	m := New(Config{
		SiteHealthURL: site.URL,
		DBHealthURL:   db.URL,
	}, openTestStore(t), nil, slog.Default())

	result, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, result.SiteHealth.OK)
	assert.Equal(t, http.StatusServiceUnavailable, result.SiteHealth.Status)
	assert.True(t, result.DBHealth.OK)
	require.Len(t, result.Alerts, 1)
	assert.Contains(t, result.Alerts[0], "503")
}

func TestRunDBDisconnectedRaisesAlert(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(site.Close)
	db := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"connected": false}`))
	}))
	t.Cleanup(db.Close)

	m := New(Config{SiteHealthURL: site.URL, DBHealthURL: db.URL},
		openTestStore(t), nil, slog.Default())

	result, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, result.DBHealth.OK)
	assert.True(t, result.HasAlerts())
}

func TestRunUnreachableEndpointIsAlertNotError(t *testing.T) {
	m := New(Config{
		SiteHealthURL: "http://127.0.0.1:1/api/health",
		DBHealthURL:   "http://127.0.0.1:1/api/health/db",
		ProbeTimeout:  500 * time.Millisecond,
	}, openTestStore(t), nil, slog.Default())

	result, err := m.Run(context.Background())
	require.NoError(t, err, "probe failures are findings, not run failures")
	assert.False(t, result.SiteHealth.OK)
	assert.False(t, result.DBHealth.OK)
	assert.GreaterOrEqual(t, len(result.Alerts), 2)
}

func TestRunErrorScanThreshold(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		require.NoError(t, s.InsertLog(ctx, store.AuditLog{Level: "error", Message: "boom"}))
	}

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(site.Close)
	db := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"connected": true}`))
	}))
	t.Cleanup(db.Close)

	m := New(Config{SiteHealthURL: site.URL, DBHealthURL: db.URL, ErrorMax: 10},
		s, nil, slog.Default())

	result, err := m.Run(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "12 error")
	require.Len(t, result.Alerts, 1)
}

func TestRunBackupFailureRaisesAlert(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(site.Close)
	db := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"connected": true}`))
	}))
	t.Cleanup(db.Close)
	backup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(backup.Close)

	m := New(Config{
		SiteHealthURL: site.URL,
		DBHealthURL:   db.URL,
		BackupURL:     backup.URL,
	}, openTestStore(t), nil, slog.Default())

	result, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, result.BackupStatus.Success)
	assert.True(t, result.HasAlerts())
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := New(Config{SiteHealthURL: "http://example.invalid", DBHealthURL: "http://example.invalid"},
		openTestStore(t), nil, slog.Default())

	result, err := m.Run(ctx)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
}

func jsonDecode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
