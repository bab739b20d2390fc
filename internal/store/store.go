// Copyright (c) 2026 Keywarden Team
// Keywarden - per-user SSH authorized_keys curation
// This source code is licensed under the MIT license found in the LICENSE file.

package store

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/toresbe/keywarden/internal/logging"
	"github.com/toresbe/keywarden/internal/model"
	"github.com/toresbe/keywarden/internal/sshkey"
	"github.com/toresbe/keywarden/internal/sysuser"
)

// chownFunc allows tests to override ownership changes, which require
// privileges a test run does not have.
var chownFunc = os.Chown

// KeyStore manages the authorized_keys file for a single user. It assumes
// sshd's default AuthorizedKeysFile of %h/.ssh/authorized_keys.
//
// A KeyStore is the only in-process mutator of its file and serializes its
// own operations; it does not lock against concurrent external editors.
// After any successful operation the in-memory entries match the non-blank
// lines of the file, in order, with no duplicate raw lines.
type KeyStore struct {
	username string
	path     string
	entries  []model.KeyEntry
}

// Open resolves username through dir, validates the account's home
// directory, bootstraps <home>/.ssh when absent (owned by the account's
// UID/GID), and loads any existing authorized_keys entries in file order.
//
// A nil dir falls back to the operating system's user database. A malformed
// line in an existing file aborts the whole Open: the store never silently
// drops or reinterprets trusted keys.
func Open(username string, dir sysuser.Directory) (*KeyStore, error) {
	if dir == nil {
		dir = sysuser.OS()
	}

	rec, err := dir.Lookup(username)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(rec.HomeDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNoHomeDirectory, rec.HomeDir)
	}

	sshDir := filepath.Join(rec.HomeDir, ".ssh")
	if info, err := os.Stat(sshDir); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", sshDir, err)
		}
		if err := os.Mkdir(sshDir, 0o700); err != nil {
			return nil, fmt.Errorf("create %s: %w", sshDir, err)
		}
		if err := chownFunc(sshDir, rec.UID, rec.GID); err != nil {
			return nil, fmt.Errorf("chown %s to %d:%d: %w", sshDir, rec.UID, rec.GID, err)
		}
		logging.Debugf("store: created %s (owner %d:%d)", sshDir, rec.UID, rec.GID)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("%s exists but is not a directory", sshDir)
	}

	s := &KeyStore{
		username: rec.Name,
		path:     filepath.Join(sshDir, "authorized_keys"),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads the authorized_keys file into memory. A missing file is an
// empty store; blank lines are skipped.
func (s *KeyStore) load() error {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	// Large RSA keys with long comments can exceed the default token size.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := sshkey.Parse(line)
		if err != nil {
			return fmt.Errorf("%s line %d: %w", s.path, lineNo, err)
		}
		s.entries = append(s.entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	logging.Debugf("store: loaded %d entries from %s", len(s.entries), s.path)
	return nil
}

// Append parses raw as one authorized_keys line and appends it.
func (s *KeyStore) Append(raw string) error {
	entry, err := sshkey.Parse(raw)
	if err != nil {
		return err
	}
	return s.AppendEntry(entry)
}

// AppendEntry appends an already-parsed entry. Duplicate detection is over
// the trimmed raw line, so identical key material with a different comment
// counts as a distinct entry.
//
// The file is extended before the in-memory list: if the process dies in
// between, the file remains the source of truth and a reopen recovers the
// full state.
func (s *KeyStore) AppendEntry(entry model.KeyEntry) error {
	for _, e := range s.entries {
		if e.Raw == entry.Raw {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, entry.Fingerprint)
		}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open %s for append: %w", s.path, err)
	}
	if _, err := f.WriteString(entry.Raw + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("append to %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.path, err)
	}

	s.entries = append(s.entries, entry)
	logging.Debugf("store: appended %s for %s", entry.Fingerprint, s.username)
	return nil
}

// At returns the entry at index i in file order.
func (s *KeyStore) At(i int) (model.KeyEntry, error) {
	if i < 0 || i >= len(s.entries) {
		return model.KeyEntry{}, fmt.Errorf("%w: %d (have %d entries)", ErrIndexOutOfRange, i, len(s.entries))
	}
	return s.entries[i], nil
}

// Delete removes the entry at index i and rewrites the file without it.
//
// The physical line removed is matched by content, not position: every line
// whose trimmed text equals the entry's raw text is dropped. If an external
// writer has introduced duplicate-content lines since load, this can remove
// more than the caller intended; that drift is a documented limitation, not
// something Delete detects.
func (s *KeyStore) Delete(i int) error {
	if i < 0 || i >= len(s.entries) {
		return fmt.Errorf("%w: %d (have %d entries)", ErrIndexOutOfRange, i, len(s.entries))
	}
	target := s.entries[i]

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	var b strings.Builder
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == target.Raw {
			continue
		}
		b.WriteString(trimmed)
		b.WriteByte('\n')
	}

	if err := s.replace(b.String()); err != nil {
		return err
	}

	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	logging.Debugf("store: removed %s for %s", target.Fingerprint, s.username)
	return nil
}

// replace writes content to a temporary file next to the target and moves it
// into place atomically, so a reader opening the path mid-operation never
// sees a truncated file.
func (s *KeyStore) replace(content string) error {
	tmp := filepath.Join(filepath.Dir(s.path), fmt.Sprintf("authorized_keys.keywarden.%d", time.Now().UnixNano()))

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create temp file %s: %w", tmp, err)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write temp file %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// Len returns the number of entries.
func (s *KeyStore) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the entry list in file order.
func (s *KeyStore) Entries() []model.KeyEntry {
	out := make([]model.KeyEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Path returns the absolute path of the authorized_keys file.
func (s *KeyStore) Path() string {
	return s.path
}

// Username returns the account name the store was opened for.
func (s *KeyStore) Username() string {
	return s.username
}
