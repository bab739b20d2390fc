// Copyright (c) 2026 Keywarden Team
// Keywarden - per-user SSH authorized_keys curation
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/toresbe/keywarden/internal/model"
)

// Actions recorded in the audit trail.
const (
	ActionAddKey     = "ADD_KEY"
	ActionRemoveKey  = "REMOVE_KEY"
	ActionRestoreKey = "RESTORE_KEY"
)

// AuditLogModel maps the audit_log table for Bun queries.
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int    `bun:"id,pk,autoincrement"`
	Timestamp     string `bun:"timestamp"`
	Username      string `bun:"username"`
	Action        string `bun:"action"`
	Details       string `bun:"details"`
}

// auditStore is the Bun-backed Store implementation shared by all backends.
type auditStore struct {
	bun *bun.DB
}

// LogAction appends one record to the audit trail.
func (s *auditStore) LogAction(username, action, details string) error {
	ctx := context.Background()
	rec := &AuditLogModel{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Username:  username,
		Action:    action,
		Details:   details,
	}
	if _, err := s.bun.NewInsert().Model(rec).Exec(ctx); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	return nil
}

// GetAuditLog returns all audit records in insertion order.
func (s *auditStore) GetAuditLog() ([]model.AuditEntry, error) {
	ctx := context.Background()
	var rows []AuditLogModel
	if err := s.bun.NewSelect().Model(&rows).Order("id").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	out := make([]model.AuditEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, auditLogModelToModel(r))
	}
	return out, nil
}

// Close releases the underlying database connection.
func (s *auditStore) Close() error {
	return s.bun.Close()
}

func auditLogModelToModel(r AuditLogModel) model.AuditEntry {
	return model.AuditEntry{
		ID:        r.ID,
		Timestamp: r.Timestamp,
		Username:  r.Username,
		Action:    r.Action,
		Details:   r.Details,
	}
}
