// Copyright (C) 2025 FileHarbor Labs (ops@fileharbor.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package notify renders diagnostic reports into operator messages and
// delivers them through the outbound mail relay. Delivery is fire-and-forget
// from the pipeline's perspective: a send failure is its own error kind,
// surfaced to logs and metrics, and never fails the run that produced the
// report.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrSendFailed wraps every delivery failure so callers can classify it.
var ErrSendFailed = errors.New("notification send failed")

// Message is one rendered notification.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers rendered messages. Implementations must be safe for
// sequential use from a single run.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// RelayConfig points the mailer at the outbound relay API.
type RelayConfig struct {
	URL     string
	APIKey  string
	From    string
	Timeout time.Duration
}

// RelayMailer sends through an HTTP mail-relay API: one POST carrying
// from/to/subject/html, authorized by bearer token. No delivery confirmation
// beyond the call's status code is consumed.
type RelayMailer struct {
	cfg    RelayConfig
	client *http.Client
}

// NewRelayMailer builds a mailer. A nil client gets a default http.Client.
func NewRelayMailer(cfg RelayConfig, client *http.Client) *RelayMailer {
	if client == nil {
		client = &http.Client{}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &RelayMailer{cfg: cfg, client: client}
}

// Send posts one message to the relay.
func (m *RelayMailer) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(map[string]string{
		"from":    m.cfg.From,
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("%w: encode payload: %v", ErrSendFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: relay returned %d: %s", ErrSendFailed, resp.StatusCode, body)
	}
	return nil
}
