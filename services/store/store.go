// Copyright (C) 2025 FileHarbor Labs (ops@fileharbor.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store is the data-access layer over the Harbor application
// database. It exposes the typed queries and mutations the diagnostic bots
// need: integrity scans, duplicate detection, age-based cleanup, and the
// row-level repairs applied by auto-remediation.
//
// The driver is modernc.org/sqlite (pure Go, no CGO). The schema mirrors the
// production tables the bots inspect; note that the legacy schema carries no
// foreign-key constraints, which is precisely why dangling references can
// exist and need a checker.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// checkedTables are the tables the connectivity check sizes, in report order.
var checkedTables = []string{"users", "folders", "files", "notifications", "audit_logs"}

// Store wraps the application database connection.
//
// All methods take a context and are safe for sequential use from a single
// pipeline run. The underlying *sql.DB pool is shared and not handed out.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		email      TEXT,
		name       TEXT NOT NULL DEFAULT '',
		role       TEXT NOT NULL DEFAULT 'member',
		agent_id   TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS folders (
		id       TEXT PRIMARY KEY,
		name     TEXT,
		owner_id TEXT
	);

	CREATE TABLE IF NOT EXISTS files (
		id          TEXT PRIMARY KEY,
		name        TEXT,
		storage_url TEXT,
		folder_id   TEXT,
		size_bytes  INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id         TEXT PRIMARY KEY,
		user_id    TEXT,
		message    TEXT NOT NULL DEFAULT '',
		read       INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audit_logs (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		level       TEXT NOT NULL,
		source      TEXT NOT NULL DEFAULT '',
		message     TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	CREATE INDEX IF NOT EXISTS idx_files_folder ON files(folder_id);
	CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id);
	CREATE INDEX IF NOT EXISTS idx_logs_level_time ON audit_logs(level, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// PoolStats reports connection-pool usage for the connectivity check.
func (s *Store) PoolStats() sql.DBStats {
	return s.db.Stats()
}

// TableSizes returns row counts for every checked table.
func (s *Store) TableSizes(ctx context.Context) ([]TableSize, error) {
	sizes := make([]TableSize, 0, len(checkedTables))
	for _, table := range checkedTables {
		var n int64
		// Table names come from the fixed list above, never from input.
		q := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
		if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		sizes = append(sizes, TableSize{Table: table, Rows: n})
	}
	return sizes, nil
}

// =============================================================================
// Referential integrity
// =============================================================================

// UsersWithDanglingAgent returns users whose agent_id points at a deleted
// agent. The returned rows still carry the stale agent_id so callers can
// record the prior parent before it is nulled out.
func (s *Store) UsersWithDanglingAgent(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, COALESCE(u.email, ''), u.name, u.role, u.agent_id, u.created_at
		FROM users u
		WHERE u.agent_id IS NOT NULL
		  AND NOT EXISTS (SELECT 1 FROM agents a WHERE a.id = u.agent_id)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

// ClearUserAgents nulls out agent_id for the given users, one row at a time.
// Each update is individually atomic; a failure partway leaves earlier rows
// repaired, which the next run tolerates.
func (s *Store) ClearUserAgents(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE users SET agent_id = NULL WHERE id = ?`, id); err != nil {
			return fmt.Errorf("clear agent for user %s: %w", id, err)
		}
	}
	return nil
}

// FilesWithDanglingFolder returns files whose folder no longer exists.
func (s *Store) FilesWithDanglingFolder(ctx context.Context) ([]File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, COALESCE(f.name, ''), COALESCE(f.storage_url, ''), f.folder_id, f.size_bytes, f.created_at
		FROM files f
		WHERE f.folder_id IS NOT NULL
		  AND NOT EXISTS (SELECT 1 FROM folders d WHERE d.id = f.folder_id)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFiles(rows)
}

// DeleteFiles removes the given files by id.
func (s *Store) DeleteFiles(ctx context.Context, ids []string) error {
	return s.deleteByID(ctx, "files", ids)
}

// NotificationsWithDanglingUser returns notifications addressed to users
// that no longer exist.
func (s *Store) NotificationsWithDanglingUser(ctx context.Context) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.id, n.user_id, n.message, n.read, n.created_at
		FROM notifications n
		WHERE n.user_id IS NOT NULL
		  AND NOT EXISTS (SELECT 1 FROM users u WHERE u.id = n.user_id)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// DeleteNotifications removes the given notifications by id.
func (s *Store) DeleteNotifications(ctx context.Context, ids []string) error {
	return s.deleteByID(ctx, "notifications", ids)
}

// =============================================================================
// Resource integrity
// =============================================================================

// FilesWithMissingFields returns files missing a name or a storage URL.
// Such rows are unrecoverable (the blob pointer is gone) and safe to delete.
func (s *Store) FilesWithMissingFields(ctx context.Context) ([]File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(name, ''), COALESCE(storage_url, ''), folder_id, size_bytes, created_at
		FROM files
		WHERE name IS NULL OR TRIM(name) = ''
		   OR storage_url IS NULL OR TRIM(storage_url) = ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFiles(rows)
}

// DuplicateFileURLs returns storage URLs shared by more than one file row.
func (s *Store) DuplicateFileURLs(ctx context.Context) ([]DuplicateGroup, error) {
	return s.duplicateGroups(ctx, `
		SELECT storage_url, COUNT(*) AS n FROM files
		WHERE storage_url IS NOT NULL AND TRIM(storage_url) != ''
		GROUP BY storage_url HAVING n > 1`)
}

// =============================================================================
// Account integrity
// =============================================================================

// CountUsersMissingEmail counts accounts with no contact email.
func (s *Store) CountUsersMissingEmail(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email IS NULL OR TRIM(email) = ''`).Scan(&n)
	return n, err
}

// DuplicateEmails returns email addresses shared by more than one account.
func (s *Store) DuplicateEmails(ctx context.Context) ([]DuplicateGroup, error) {
	return s.duplicateGroups(ctx, `
		SELECT LOWER(email), COUNT(*) AS n FROM users
		WHERE email IS NOT NULL AND TRIM(email) != ''
		GROUP BY LOWER(email) HAVING n > 1`)
}

// CountReadNotificationsOlderThan counts read notifications created before
// the cutoff.
func (s *Store) CountReadNotificationsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE read = 1 AND created_at < ?`,
		formatTime(cutoff)).Scan(&n)
	return n, err
}

// DeleteReadNotificationsOlderThan removes read notifications created before
// the cutoff and reports how many rows went away.
func (s *Store) DeleteReadNotificationsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE read = 1 AND created_at < ?`,
		formatTime(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// =============================================================================
// Audit-log hygiene & performance
// =============================================================================

// CountLogsAtLevelSince counts audit entries at the given level newer than
// since.
func (s *Store) CountLogsAtLevelSince(ctx context.Context, level string, since time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_logs WHERE level = ? AND created_at >= ?`,
		level, formatTime(since)).Scan(&n)
	return n, err
}

// CountLogsOlderThan counts audit entries created before the cutoff.
func (s *Store) CountLogsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_logs WHERE created_at < ?`,
		formatTime(cutoff)).Scan(&n)
	return n, err
}

// DeleteLogsOlderThan removes audit entries created before the cutoff.
func (s *Store) DeleteLogsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM audit_logs WHERE created_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SlowOperationsSince returns timed audit entries newer than since whose
// duration exceeds minDuration.
func (s *Store) SlowOperationsSince(ctx context.Context, since time.Time, minDuration time.Duration) ([]AuditLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, level, source, message, duration_ms, created_at
		FROM audit_logs
		WHERE duration_ms > ? AND created_at >= ?
		ORDER BY duration_ms DESC`,
		minDuration.Milliseconds(), formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditLog
	for rows.Next() {
		var l AuditLog
		var created string
		if err := rows.Scan(&l.ID, &l.Level, &l.Source, &l.Message, &l.DurationMS, &created); err != nil {
			return nil, err
		}
		l.CreatedAt = parseTime(created)
		out = append(out, l)
	}
	return out, rows.Err()
}

// =============================================================================
// Access control
// =============================================================================

// CountAdmins counts accounts holding the admin role.
func (s *Store) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = 'admin'`).Scan(&n)
	return n, err
}

// =============================================================================
// Writes (fixtures and app-side inserts)
// =============================================================================

// InsertAgent adds an agent row.
func (s *Store) InsertAgent(ctx context.Context, a Agent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agents (id, name) VALUES (?, ?)`, a.ID, a.Name)
	return err
}

// InsertUser adds a user row.
func (s *Store) InsertUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, role, agent_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, nullIfEmpty(u.Email), u.Name, u.Role, u.AgentID, formatTime(u.CreatedAt))
	return err
}

// InsertFolder adds a folder row.
func (s *Store) InsertFolder(ctx context.Context, f Folder) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO folders (id, name, owner_id) VALUES (?, ?, ?)`,
		f.ID, nullIfEmpty(f.Name), f.OwnerID)
	return err
}

// InsertFile adds a file row.
func (s *Store) InsertFile(ctx context.Context, f File) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (id, name, storage_url, folder_id, size_bytes, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, nullIfEmpty(f.Name), nullIfEmpty(f.StorageURL), f.FolderID, f.SizeBytes, formatTime(f.CreatedAt))
	return err
}

// InsertNotification adds a notification row.
func (s *Store) InsertNotification(ctx context.Context, n Notification) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, message, read, created_at) VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Message, n.Read, formatTime(n.CreatedAt))
	return err
}

// InsertLog adds an audit-log row.
func (s *Store) InsertLog(ctx context.Context, l AuditLog) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_logs (level, source, message, duration_ms, created_at) VALUES (?, ?, ?, ?, ?)`,
		l.Level, l.Source, l.Message, l.DurationMS, formatTime(l.CreatedAt))
	return err
}

// GetUser retrieves one user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(email, ''), name, role, agent_id, created_at
		FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users, err := scanUsers(rows)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, sql.ErrNoRows
	}
	return &users[0], nil
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Store) deleteByID(ctx context.Context, table string, ids []string) error {
	for _, id := range ids {
		q := fmt.Sprintf("DELETE FROM %s WHERE id = ?", table)
		if _, err := s.db.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	return nil
}

func (s *Store) duplicateGroups(ctx context.Context, query string) ([]DuplicateGroup, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DuplicateGroup
	for rows.Next() {
		var g DuplicateGroup
		if err := rows.Scan(&g.Value, &g.Count); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func scanUsers(rows *sql.Rows) ([]User, error) {
	var out []User
	for rows.Next() {
		var u User
		var created string
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.AgentID, &created); err != nil {
			return nil, err
		}
		u.CreatedAt = parseTime(created)
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanFiles(rows *sql.Rows) ([]File, error) {
	var out []File
	for rows.Next() {
		var f File
		var created string
		if err := rows.Scan(&f.ID, &f.Name, &f.StorageURL, &f.FolderID, &f.SizeBytes, &created); err != nil {
			return nil, err
		}
		f.CreatedAt = parseTime(created)
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanNotifications(rows *sql.Rows) ([]Notification, error) {
	var out []Notification
	for rows.Next() {
		var n Notification
		var created string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Read, &created); err != nil {
			return nil, err
		}
		n.CreatedAt = parseTime(created)
		out = append(out, n)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
