// Copyright (c) 2026 Keywarden Team
// Keywarden - per-user SSH authorized_keys curation
// This source code is licensed under the MIT license found in the LICENSE file.

// Package store owns the authorized-keys trust list for one user: the
// in-memory entries, the on-disk file, and the protocol keeping them in sync.
package store

import "errors"

// ErrNoHomeDirectory is returned when the resolved home directory does not
// exist on the filesystem. The store refuses to operate for such users.
var ErrNoHomeDirectory = errors.New("user home directory does not exist")

// ErrDuplicateKey is returned when an appended key's raw text is already
// present in the store.
var ErrDuplicateKey = errors.New("key already in file")

// ErrIndexOutOfRange is returned by At and Delete for indexes outside the
// current entry list.
var ErrIndexOutOfRange = errors.New("key index out of range")
