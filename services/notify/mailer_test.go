// Copyright (C) 2025 FileHarbor Labs (ops@fileharbor.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayMailerSend(t *testing.T) {
	var got map[string]string
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	m := NewRelayMailer(RelayConfig{
		URL: srv.URL, APIKey: "relay-key", From: "sentinel@harbor.io",
	}, nil)

	err := m.Send(context.Background(), Message{
		To:      "ops@harbor.io",
		Subject: "[Harbor] Health check: HEALTHY",
		HTML:    "<p>fine</p>",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer relay-key", auth)
	assert.Equal(t, "sentinel@harbor.io", got["from"])
	assert.Equal(t, "ops@harbor.io", got["to"])
	assert.Equal(t, "[Harbor] Health check: HEALTHY", got["subject"])
	assert.Equal(t, "<p>fine</p>", got["html"])
}

func TestRelayMailerRejectionIsSendFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	m := NewRelayMailer(RelayConfig{URL: srv.URL, APIKey: "bad"}, nil)
	err := m.Send(context.Background(), Message{To: "ops@harbor.io"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.Contains(t, err.Error(), "401")
}

func TestRelayMailerUnreachableIsSendFailed(t *testing.T) {
	m := NewRelayMailer(RelayConfig{URL: "http://127.0.0.1:1/send"}, nil)
	err := m.Send(context.Background(), Message{To: "ops@harbor.io"})
	assert.ErrorIs(t, err, ErrSendFailed)
}
