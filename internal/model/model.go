// Copyright (c) 2026 Keywarden Team
// Keywarden - per-user SSH authorized_keys curation
// This source code is licensed under the MIT license found in the LICENSE file.

// Package model holds the domain types shared across Keywarden.
package model

import (
	"fmt"
	"time"
)

// KeyEntry is the parsed representation of one authorized_keys line.
// Raw is the exact original line trimmed of surrounding whitespace and is
// the identity used for duplicate detection; Fingerprint is for display only.
// A KeyEntry is immutable once constructed.
type KeyEntry struct {
	Raw         string
	Algorithm   string
	Bits        int
	Fingerprint string
	Comment     string
}

// String returns a human-readable summary of the entry.
func (e KeyEntry) String() string {
	comment := e.Comment
	if comment == "" {
		comment = "no comment"
	}
	return fmt.Sprintf("%s: %d bit %s (%s)", e.Fingerprint, e.Bits, e.Algorithm, comment)
}

// AuditEntry is one record of the audit trail.
type AuditEntry struct {
	ID        int
	Timestamp string
	Username  string
	Action    string
	Details   string
}

// BackupData is the serialized snapshot written by the backup command.
type BackupData struct {
	Version   int          `json:"version"`
	CreatedAt time.Time    `json:"created_at"`
	Username  string       `json:"username"`
	Keys      []string     `json:"keys"`
	AuditLog  []AuditEntry `json:"audit_log,omitempty"`
}
