// Copyright (c) 2026 Keywarden Team
// Keywarden - per-user SSH authorized_keys curation
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/toresbe/keywarden/internal/db"
	"github.com/toresbe/keywarden/internal/logging"
	"github.com/toresbe/keywarden/internal/model"
	"github.com/toresbe/keywarden/internal/sshkey"
	"github.com/toresbe/keywarden/internal/store"
)

// backupCmd dumps a user's trust list (and the audit trail, when enabled)
// into a Zstandard-compressed JSON file.
var backupCmd = &cobra.Command{
	Use:   "backup <username> [output-file]",
	Short: "Create a compressed (zstd) JSON backup of a user's keys",
	Long: `Dumps a user's authorized_keys entries, plus the audit trail when
auditing is enabled, into a single Zstandard-compressed JSON file.

If an output file is specified, '.zst' will be appended to the name if it's
not already present. Otherwise a default filename
'keywarden-backup-YYYY-MM-DD.json.zst' is used.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(args[0])
		if err != nil {
			return err
		}

		var outputFile string
		if len(args) == 2 {
			outputFile = args[1]
		} else {
			outputFile = fmt.Sprintf("keywarden-backup-%s.json.zst", time.Now().Format("2006-01-02"))
		}
		if !strings.HasSuffix(outputFile, ".zst") {
			outputFile += ".zst"
		}

		data := model.BackupData{
			Version:   1,
			CreatedAt: time.Now().UTC(),
			Username:  s.Username(),
		}
		for _, e := range s.Entries() {
			data.Keys = append(data.Keys, e.Raw)
		}
		if db.IsInitialized() {
			auditLog, err := db.Default().GetAuditLog()
			if err != nil {
				return fmt.Errorf("failed to read audit log: %w", err)
			}
			data.AuditLog = auditLog
		}

		if err := writeBackupFile(outputFile, &data); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Backed up %d keys for %s to %s.\n", len(data.Keys), data.Username, outputFile)
		return nil
	},
}

// restoreCmd re-appends the keys from a backup file, skipping entries that
// are already present.
var restoreCmd = &cobra.Command{
	Use:   "restore <backup-file>",
	Short: "Restore keys from a backup file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readBackupFile(args[0])
		if err != nil {
			return err
		}

		username, _ := cmd.Flags().GetString("user")
		if username == "" {
			username = data.Username
		}
		if username == "" {
			return fmt.Errorf("backup carries no username; pass --user")
		}

		s, err := openStore(username)
		if err != nil {
			return err
		}

		restored, skipped := 0, 0
		for _, raw := range data.Keys {
			entry, err := sshkey.Parse(raw)
			if err != nil {
				return fmt.Errorf("backup contains an invalid key line: %w", err)
			}
			if err := s.AppendEntry(entry); err != nil {
				if errors.Is(err, store.ErrDuplicateKey) {
					skipped++
					continue
				}
				return err
			}
			restored++
			if err := db.LogAction(s.Username(), db.ActionRestoreKey, auditDetails(entry.Fingerprint, entry.Algorithm)); err != nil {
				logging.Errorf("audit write failed: %v", err)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Restored %d keys for %s (%d already present).\n", restored, s.Username(), skipped)
		return nil
	},
}

func init() {
	restoreCmd.Flags().String("user", "", "restore into this account instead of the one recorded in the backup")
}

// writeBackupFile serializes data as pretty-printed JSON inside a zstd
// stream.
func writeBackupFile(path string, data *model.BackupData) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}

	zstdWriter, err := zstd.NewWriter(file)
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("could not create zstd writer: %w", err)
	}

	encoder := json.NewEncoder(zstdWriter)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		_ = zstdWriter.Close()
		_ = file.Close()
		return fmt.Errorf("could not encode json to zstd writer: %w", err)
	}

	if err := zstdWriter.Close(); err != nil {
		_ = file.Close()
		return fmt.Errorf("could not finish zstd stream: %w", err)
	}
	return file.Close()
}

// readBackupFile reads a zstd-compressed JSON backup.
func readBackupFile(path string) (*model.BackupData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	zstdReader, err := zstd.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("could not create zstd reader: %w", err)
	}
	defer zstdReader.Close()

	var backupData model.BackupData
	if err := json.NewDecoder(zstdReader).Decode(&backupData); err != nil {
		return nil, fmt.Errorf("could not decode json from zstd reader: %w", err)
	}
	return &backupData, nil
}
