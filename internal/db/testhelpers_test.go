// Copyright (c) 2026 Keywarden Team
// Keywarden - per-user SSH authorized_keys curation
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"testing"
)

// withTestStore initializes an in-memory sqlite store for the duration of
// the provided function and restores package-level globals afterwards.
func withTestStore(t *testing.T, fn func(s Store)) {
	t.Helper()

	prev := store
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	if err := InitDB("sqlite", dsn); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	s := store
	t.Cleanup(func() {
		_ = s.Close()
		store = prev
	})

	fn(s)
}
