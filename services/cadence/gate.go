// Copyright (C) 2025 FileHarbor Labs (ops@fileharbor.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cadence decides whether a routine "all healthy" notice is due.
//
// The gate is backed by BadgerDB: one durable key per notification purpose
// holding the RFC3339 timestamp of the last routine send. Check and commit
// happen inside a single Badger transaction, so a due verdict and the
// timestamp advance are atomic within the process. Across processes there is
// no lock: the external scheduler is assumed to trigger at most one run at a
// time, and a double-fire can at worst double-send one routine notice.
package cadence

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "cadence/"

// Gate enforces a minimum interval between routine notices.
type Gate struct {
	db       *badger.DB
	interval time.Duration
	log      *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewGate wraps an open Badger database. interval is the minimum gap between
// routine notices for any purpose.
func NewGate(db *badger.DB, interval time.Duration, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{db: db, interval: interval, log: log, now: time.Now}
}

// Due reports whether a routine notice for the given purpose is due, and if
// so advances the stored timestamp to now in the same transaction.
//
//   - First call ever: due, and the cadence is armed.
//   - Within the interval: not due, stored timestamp untouched.
//   - Past the interval: due, stored timestamp advanced.
//
// The stored timestamp is monotonically non-decreasing.
func (g *Gate) Due(purpose string) (bool, error) {
	key := []byte(keyPrefix + purpose)
	now := g.now()
	due := false

	err := g.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			due = true
		case err != nil:
			return fmt.Errorf("read cadence key: %w", err)
		default:
			var raw []byte
			raw, err = item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("copy cadence value: %w", err)
			}
			last, err := time.Parse(time.RFC3339, string(raw))
			if err != nil {
				// An unreadable timestamp re-arms the gate rather than
				// wedging it shut forever.
				g.log.Warn("cadence timestamp unreadable, re-arming",
					"purpose", purpose, "value", string(raw))
				due = true
			} else {
				due = now.Sub(last) >= g.interval
			}
		}
		if !due {
			return nil
		}
		return txn.Set(key, []byte(now.UTC().Format(time.RFC3339)))
	})
	if err != nil {
		return false, err
	}
	return due, nil
}

// LastSent returns the stored timestamp for a purpose, or ok=false if the
// cadence was never armed.
func (g *Gate) LastSent(purpose string) (time.Time, bool, error) {
	var last time.Time
	ok := false
	err := g.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + purpose))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		last, err = time.Parse(time.RFC3339, string(raw))
		if err != nil {
			return fmt.Errorf("parse cadence timestamp: %w", err)
		}
		ok = true
		return nil
	})
	return last, ok, err
}

// OpenDB opens the cadence state database at path, creating it if needed.
// Badger's own logging is routed to slog at debug level.
func OpenDB(path string, log *slog.Logger) (*badger.DB, error) {
	if log == nil {
		log = slog.Default()
	}
	opts := badger.DefaultOptions(path).
		WithLogger(&badgerLogger{log: log}).
		WithNumVersionsToKeep(1)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cadence db: %w", err)
	}
	return db, nil
}

// OpenInMemoryDB opens a throwaway in-memory instance for tests.
func OpenInMemoryDB() (*badger.DB, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	return badger.Open(opts)
}

// badgerLogger adapts slog to Badger's Logger interface. Badger is chatty,
// so everything below errors lands at debug.
type badgerLogger struct {
	log *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}
