// Copyright (c) 2026 Keywarden Team
// Keywarden - per-user SSH authorized_keys curation
// This source code is licensed under the MIT license found in the LICENSE file.

// Package sshkey parses raw authorized_keys lines into structured entries.
package sshkey

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/toresbe/keywarden/internal/model"
)

// ErrInvalidKeyFormat is returned when a line cannot be decoded as a
// supported public key.
var ErrInvalidKeyFormat = errors.New("invalid key format")

// Parse decodes one raw authorized_keys line into a KeyEntry.
// The line must carry a supported key type and a well-formed base64 payload;
// anything else fails with ErrInvalidKeyFormat. Raw is set to the line
// trimmed of surrounding whitespace.
func Parse(line string) (model.KeyEntry, error) {
	raw := strings.TrimSpace(line)
	if raw == "" {
		return model.KeyEntry{}, fmt.Errorf("%w: empty line", ErrInvalidKeyFormat)
	}

	pk, comment, _, _, err := ssh.ParseAuthorizedKey([]byte(raw))
	if err != nil {
		return model.KeyEntry{}, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
	}

	return model.KeyEntry{
		Raw:         raw,
		Algorithm:   pk.Type(),
		Bits:        bitLength(pk),
		Fingerprint: ssh.FingerprintSHA256(pk),
		// Normalize the trailing free-text field: tokens joined by single spaces.
		Comment: strings.Join(strings.Fields(comment), " "),
	}, nil
}

// bitLength returns the bit length of the key material, or 0 when it cannot
// be determined for the algorithm.
func bitLength(pk ssh.PublicKey) int {
	if ck, ok := pk.(ssh.CryptoPublicKey); ok {
		// rsa.PublicKey exposes the modulus size in bytes.
		if k, ok := ck.CryptoPublicKey().(interface{ Size() int }); ok {
			return k.Size() * 8
		}
	}

	// Fixed sizes for the remaining common algorithms.
	switch pk.Type() {
	case ssh.KeyAlgoED25519:
		return 256
	case ssh.KeyAlgoECDSA256:
		return 256
	case ssh.KeyAlgoECDSA384:
		return 384
	case ssh.KeyAlgoECDSA521:
		return 521
	}
	return 0
}
