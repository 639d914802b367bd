// Copyright (C) 2025 FileHarbor Labs (ops@fileharbor.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import "time"

// User is a platform account. AgentID is nullable: a user may be unassigned,
// or their agent may have been deleted out from under them.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      string // "admin" or "member"
	AgentID   *string
	CreatedAt time.Time
}

// Agent is the support/ownership entity users are assigned to.
type Agent struct {
	ID   string
	Name string
}

// Folder groups files under an owning user.
type Folder struct {
	ID      string
	Name    string
	OwnerID *string
}

// File is one stored object. StorageURL points at the external blob store.
type File struct {
	ID         string
	Name       string
	StorageURL string
	FolderID   *string
	SizeBytes  int64
	CreatedAt  time.Time
}

// Notification is an in-app message delivered to a user.
type Notification struct {
	ID        string
	UserID    *string
	Message   string
	Read      bool
	CreatedAt time.Time
}

// AuditLog is one entry in the platform audit trail. DurationMS is populated
// for entries that record a timed operation (queries, API calls).
type AuditLog struct {
	ID         int64
	Level      string // "info", "warning", "error", "critical"
	Source     string
	Message    string
	DurationMS int64
	CreatedAt  time.Time
}

// DuplicateGroup reports one value shared by more than one row.
type DuplicateGroup struct {
	Value string
	Count int64
}

// TableSize is a row count for one table.
type TableSize struct {
	Table string
	Rows  int64
}
