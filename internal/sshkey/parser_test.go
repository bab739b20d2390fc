// Copyright (c) 2026 Keywarden Team
// Keywarden - per-user SSH authorized_keys curation
// This source code is licensed under the MIT license found in the LICENSE file.

package sshkey

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"

	"github.com/toresbe/keywarden/internal/testutil"
)

func TestParse_NormalLine(t *testing.T) {
	line := testutil.KeyLine(t, "test-key@example.com")
	entry, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if entry.Algorithm != "ssh-ed25519" {
		t.Fatalf("unexpected algorithm: %s", entry.Algorithm)
	}
	if entry.Bits != 256 {
		t.Fatalf("unexpected bit length: %d", entry.Bits)
	}
	if entry.Comment != "test-key@example.com" {
		t.Fatalf("unexpected comment: %s", entry.Comment)
	}
	if !strings.HasPrefix(entry.Fingerprint, "SHA256:") {
		t.Fatalf("unexpected fingerprint: %s", entry.Fingerprint)
	}
	if entry.Raw != line {
		t.Fatalf("Raw not preserved: %q != %q", entry.Raw, line)
	}
}

func TestParse_TrimsWhitespace(t *testing.T) {
	line := testutil.KeyLine(t, "padded")
	entry, err := Parse("  " + line + "\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if entry.Raw != line {
		t.Fatalf("Raw not trimmed: %q", entry.Raw)
	}
}

func TestParse_MultiWordComment(t *testing.T) {
	line := testutil.KeyLine(t, "dummy debugging key")
	entry, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if entry.Comment != "dummy debugging key" {
		t.Fatalf("unexpected comment: %q", entry.Comment)
	}
}

func TestParse_NoComment(t *testing.T) {
	entry, err := Parse(testutil.KeyLine(t, ""))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if entry.Comment != "" {
		t.Fatalf("expected empty comment, got %q", entry.Comment)
	}
}

func TestParse_RSABitLength(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	sshPub, err := ssh.NewPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("convert public key: %v", err)
	}
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub)))

	entry, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if entry.Algorithm != "ssh-rsa" {
		t.Fatalf("unexpected algorithm: %s", entry.Algorithm)
	}
	if entry.Bits != 2048 {
		t.Fatalf("unexpected bit length: %d", entry.Bits)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"whitespace only", "   \t"},
		{"no key type", "just-some-text"},
		{"bad base64", "ssh-ed25519 not!valid!base64 comment"},
		{"truncated payload", "ssh-rsa AAAAB3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(tc.line); !errors.Is(err, ErrInvalidKeyFormat) {
				t.Fatalf("expected ErrInvalidKeyFormat, got %v", err)
			}
		})
	}
}
