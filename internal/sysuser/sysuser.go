// Copyright (c) 2026 Keywarden Team
// Keywarden - per-user SSH authorized_keys curation
// This source code is licensed under the MIT license found in the LICENSE file.

// Package sysuser resolves local account names to home directories and
// numeric owner IDs. The Directory interface exists so the store can be
// constructed against a fake resolver in tests instead of the real user
// database.
package sysuser

import (
	"errors"
	"fmt"
	"os/user"
	"strconv"
)

// ErrUnknownUser is returned when the directory service has no record for
// the requested username.
var ErrUnknownUser = errors.New("unknown user")

// Record is a resolved account: the fields of the user database Keywarden
// needs to lay out ~/.ssh correctly.
type Record struct {
	Name    string
	UID     int
	GID     int
	HomeDir string
}

// Directory looks up local accounts by name.
type Directory interface {
	Lookup(username string) (Record, error)
}

type osDirectory struct{}

// OS returns a Directory backed by the operating system's user database.
func OS() Directory {
	return osDirectory{}
}

func (osDirectory) Lookup(username string) (Record, error) {
	u, err := user.Lookup(username)
	if err != nil {
		var unknown user.UnknownUserError
		if errors.As(err, &unknown) {
			return Record{}, fmt.Errorf("%w: %s", ErrUnknownUser, username)
		}
		return Record{}, fmt.Errorf("lookup user %s: %w", username, err)
	}

	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return Record{}, fmt.Errorf("non-numeric uid %q for user %s: %w", u.Uid, username, err)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return Record{}, fmt.Errorf("non-numeric gid %q for user %s: %w", u.Gid, username, err)
	}

	return Record{Name: u.Username, UID: uid, GID: gid, HomeDir: u.HomeDir}, nil
}
