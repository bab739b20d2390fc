// Copyright (c) 2026 Keywarden Team
// Keywarden - per-user SSH authorized_keys curation
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"testing"
	"time"
)

func TestLogActionAndGetAuditLog(t *testing.T) {
	withTestStore(t, func(s Store) {
		if err := s.LogAction("alice", ActionAddKey, "fingerprint: SHA256:abc"); err != nil {
			t.Fatalf("LogAction failed: %v", err)
		}
		if err := s.LogAction("alice", ActionRemoveKey, "fingerprint: SHA256:abc"); err != nil {
			t.Fatalf("LogAction failed: %v", err)
		}

		entries, err := s.GetAuditLog()
		if err != nil {
			t.Fatalf("GetAuditLog failed: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 audit entries, got %d", len(entries))
		}
		if entries[0].Action != ActionAddKey || entries[1].Action != ActionRemoveKey {
			t.Fatalf("unexpected order: %s, %s", entries[0].Action, entries[1].Action)
		}
		if entries[0].Username != "alice" {
			t.Fatalf("unexpected username: %s", entries[0].Username)
		}
		if _, err := time.Parse(time.RFC3339, entries[0].Timestamp); err != nil {
			t.Fatalf("timestamp not RFC3339: %q", entries[0].Timestamp)
		}
	})
}

func TestPackageLogActionWithoutInit(t *testing.T) {
	prev := store
	store = nil
	defer func() { store = prev }()

	if IsInitialized() {
		t.Fatalf("expected uninitialized store")
	}
	// Auditing disabled is not an error.
	if err := LogAction("alice", ActionAddKey, "details"); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"

	first, err := NewStoreFromDSN("sqlite", dsn)
	if err != nil {
		t.Fatalf("first NewStoreFromDSN failed: %v", err)
	}
	defer func() { _ = first.Close() }()

	// Second open against the same database must skip applied migrations.
	second, err := NewStoreFromDSN("sqlite", dsn)
	if err != nil {
		t.Fatalf("second NewStoreFromDSN failed: %v", err)
	}
	defer func() { _ = second.Close() }()

	if err := second.LogAction("bob", ActionRestoreKey, "details"); err != nil {
		t.Fatalf("LogAction failed: %v", err)
	}
	entries, err := first.GetAuditLog()
	if err != nil {
		t.Fatalf("GetAuditLog failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry visible through shared cache, got %d", len(entries))
	}
}

func TestUnsupportedDriver(t *testing.T) {
	if _, err := NewStoreFromDSN("oracle", "whatever"); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}
