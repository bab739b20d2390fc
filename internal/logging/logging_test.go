// Copyright (c) 2026 Keywarden Team
// Keywarden - per-user SSH authorized_keys curation
// This source code is licensed under the MIT license found in the LICENSE file.

package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func capture(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)
	fn()
	return buf.String()
}

func TestDebugfRespectsToggle(t *testing.T) {
	SetDebug(false)
	if out := capture(t, func() { Debugf("hidden %d", 1) }); out != "" {
		t.Fatalf("expected no output with debug disabled, got %q", out)
	}

	SetDebug(true)
	defer SetDebug(false)
	if out := capture(t, func() { Debugf("shown %d", 2) }); !strings.Contains(out, "shown 2") {
		t.Fatalf("expected debug output, got %q", out)
	}
}

func TestInfofAlwaysLogs(t *testing.T) {
	if out := capture(t, func() { Infof("info %s", "msg") }); !strings.Contains(out, "info msg") {
		t.Fatalf("expected info output, got %q", out)
	}
}
