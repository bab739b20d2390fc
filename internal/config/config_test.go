// Copyright (c) 2026 Keywarden Team
// Keywarden - per-user SSH authorized_keys curation
// This source code is licensed under the MIT license found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

// chdir changes into dir for the duration of the test, restoring the
// previous working directory on cleanup (testing.T.Chdir needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		t.Fatalf("abs: %v", err)
	}
	t.Setenv("PWD", abs)
	t.Cleanup(func() {
		if err := os.Chdir(oldwd); err != nil {
			t.Errorf("restore wd: %v", err)
		}
	})
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	c, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Database.Type != "sqlite" {
		t.Fatalf("unexpected default database type: %s", c.Database.Type)
	}
	if c.Database.DSN != "./keywarden-audit.db" {
		t.Fatalf("unexpected default DSN: %s", c.Database.DSN)
	}
	if c.Audit || c.Debug {
		t.Fatalf("audit and debug should default to off")
	}
}

func TestLoadFromFileInCwd(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	content := "database:\n  type: postgres\n  dsn: postgres://audit\naudit: true\n"
	if err := os.WriteFile(filepath.Join(dir, "keywarden.yaml"), []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Database.Type != "postgres" || c.Database.DSN != "postgres://audit" {
		t.Fatalf("file values not applied: %+v", c.Database)
	}
	if !c.Audit {
		t.Fatalf("audit flag from file not applied")
	}
}

func TestLoadExplicitConfigFile(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("debug: true\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c, err := Load(nil, path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !c.Debug {
		t.Fatalf("explicit config file not applied")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("KEYWARDEN_DATABASE_TYPE", "mysql")

	c, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Database.Type != "mysql" {
		t.Fatalf("env override not applied: %s", c.Database.Type)
	}
}

func TestWriteConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "keywarden.yaml")
	in := Config{
		Database: DatabaseConfig{Type: "sqlite", DSN: "/var/lib/keywarden/audit.db"},
		Audit:    true,
	}
	if err := writeConfigTo(&in, path); err != nil {
		t.Fatalf("writeConfigTo failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("unexpected mode: %v", info.Mode().Perm())
	}

	chdir(t, filepath.Dir(path))
	c, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Database.DSN != in.Database.DSN || !c.Audit {
		t.Fatalf("round trip mismatch: %+v", c)
	}
}
