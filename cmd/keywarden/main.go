// Copyright (c) 2026 Keywarden Team
// Keywarden - per-user SSH authorized_keys curation
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface for Keywarden using the Cobra
// library. It defines the root command, subcommands (list, show, add,
// remove, audit, backup, restore), flags, and the entry point for execution.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/toresbe/keywarden/buildvars"
	"github.com/toresbe/keywarden/internal/config"
	"github.com/toresbe/keywarden/internal/db"
	"github.com/toresbe/keywarden/internal/logging"
	"github.com/toresbe/keywarden/internal/sshkey"
	"github.com/toresbe/keywarden/internal/store"
	"github.com/toresbe/keywarden/internal/sysuser"
)

var version = "dev" // this will be set by the linker

var (
	cfgFile string
	cfg     config.Config

	// userDirectory is the account resolver used by all commands. Tests
	// substitute a fake so they never touch the real user database.
	userDirectory sysuser.Directory = sysuser.OS()
)

// main is the entry point of the application.
func main() {
	if err := rootCmd.Execute(); err != nil {
		// The error is already printed by Cobra on failure.
		os.Exit(1)
	}
}

var rootCmd *cobra.Command

func init() {
	listCmd.Flags().String("format", "table", `output format ("table", "yaml")`)
	removeCmd.Flags().Bool("yes", false, "remove without asking for confirmation")
	configInitCmd.Flags().Bool("system", false, "write to the system-wide location instead of the user config dir")
	configCmd.AddCommand(configInitCmd)
	rootCmd = newRootCmd()
}

// newRootCmd creates and configures a new root cobra command. It is used
// for the main application command as well as fresh instances in tests.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keywarden",
		Short: "Keywarden curates a user's SSH authorized_keys file.",
		Long: `Keywarden manages the trust list an SSH server consults: the
~/.ssh/authorized_keys file of a local user. It validates and appends
public keys, removes entries by position, and keeps the file consistent
through atomic rewrites. Mutations can be recorded in an audit database.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(cmd, cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			cfg = c
			logging.SetDebug(cfg.Debug)
			if cfg.Audit && !db.IsInitialized() {
				if err := db.InitDB(cfg.Database.Type, cfg.Database.DSN); err != nil {
					return fmt.Errorf("failed to initialize audit database: %w", err)
				}
			}
			return nil
		},
	}

	cmd.AddCommand(listCmd)
	cmd.AddCommand(showCmd)
	cmd.AddCommand(addCmd)
	cmd.AddCommand(removeCmd)
	cmd.AddCommand(auditCmd)
	cmd.AddCommand(backupCmd)
	cmd.AddCommand(restoreCmd)
	cmd.AddCommand(configCmd)

	cmd.Version = buildvars.VersionOrDefault(version)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is keywarden.yaml in the user config dir)")
	cmd.PersistentFlags().String("db-type", "sqlite", "audit database type (sqlite, postgres, mysql)")
	cmd.PersistentFlags().String("db-dsn", "./keywarden-audit.db", "audit database connection string (DSN)")
	cmd.PersistentFlags().Bool("audit", false, "record mutations in the audit database")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	return cmd
}

// openStore opens the authorized-keys store for username with the
// configured account resolver.
func openStore(username string) (*store.KeyStore, error) {
	return store.Open(username, userDirectory)
}

// parseIndex converts a positional index argument.
func parseIndex(arg string) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q: %w", arg, err)
	}
	return i, nil
}

// listCmd prints a user's keys as a table or as YAML.
var listCmd = &cobra.Command{
	Use:   "list <username>",
	Short: "List a user's authorized keys",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(args[0])
		if err != nil {
			return err
		}
		entries := s.Entries()

		format, _ := cmd.Flags().GetString("format")
		if format == "yaml" {
			type keyDoc struct {
				Index       int    `yaml:"index"`
				Fingerprint string `yaml:"fingerprint"`
				Algorithm   string `yaml:"algorithm"`
				Bits        int    `yaml:"bits"`
				Comment     string `yaml:"comment,omitempty"`
			}
			docs := make([]keyDoc, 0, len(entries))
			for i, e := range entries {
				docs = append(docs, keyDoc{
					Index:       i,
					Fingerprint: e.Fingerprint,
					Algorithm:   e.Algorithm,
					Bits:        e.Bits,
					Comment:     e.Comment,
				})
			}
			out, err := yaml.Marshal(docs)
			if err != nil {
				return fmt.Errorf("failed to marshal keys: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		}

		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No keys found.")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tFINGERPRINT\tBITS\tALGORITHM\tCOMMENT")
		for i, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", i, e.Fingerprint, e.Bits, e.Algorithm, e.Comment)
		}
		return w.Flush()
	},
}

// showCmd prints one entry's display string.
var showCmd = &cobra.Command{
	Use:   "show <username> <index>",
	Short: "Show one authorized key in detail",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(args[0])
		if err != nil {
			return err
		}
		idx, err := parseIndex(args[1])
		if err != nil {
			return err
		}
		entry, err := s.At(idx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), entry.String())
		return nil
	},
}

// addCmd appends a public key to a user's trust list. The key line comes
// from the second argument or, when absent, from stdin.
var addCmd = &cobra.Command{
	Use:   "add <username> [keyline]",
	Short: "Append a public key to a user's authorized_keys",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]
		var raw string
		if len(args) == 2 {
			raw = args[1]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("failed to read key line from stdin: %w", err)
			}
			raw = line
		}

		entry, err := sshkey.Parse(raw)
		if err != nil {
			return err
		}

		s, err := openStore(username)
		if err != nil {
			return err
		}
		if err := s.AppendEntry(entry); err != nil {
			return err
		}

		if err := db.LogAction(s.Username(), db.ActionAddKey, auditDetails(entry.Fingerprint, entry.Algorithm)); err != nil {
			logging.Errorf("audit write failed: %v", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s for %s.\n", entry.String(), s.Username())
		return nil
	},
}

// removeCmd deletes an entry by index, confirming interactively unless
// --yes is given.
var removeCmd = &cobra.Command{
	Use:   "remove <username> <index>",
	Short: "Remove an authorized key by index",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(args[0])
		if err != nil {
			return err
		}
		idx, err := parseIndex(args[1])
		if err != nil {
			return err
		}
		entry, err := s.At(idx)
		if err != nil {
			return err
		}

		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("refusing to remove without confirmation; pass --yes")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Remove %s? [y/N]: ", entry.String())
			answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			answer = strings.ToLower(strings.TrimSpace(answer))
			if answer != "y" && answer != "yes" {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
		}

		if err := s.Delete(idx); err != nil {
			return err
		}
		if err := db.LogAction(s.Username(), db.ActionRemoveKey, auditDetails(entry.Fingerprint, entry.Algorithm)); err != nil {
			logging.Errorf("audit write failed: %v", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s for %s.\n", entry.String(), s.Username())
		return nil
	},
}

// auditCmd prints the recorded audit trail.
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the audit trail of trust-list changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !db.IsInitialized() {
			return fmt.Errorf("auditing is not enabled; pass --audit or set audit: true in the config")
		}
		entries, err := db.Default().GetAuditLog()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No audit entries found.")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIMESTAMP\tUSERNAME\tACTION\tDETAILS")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Timestamp, e.Username, e.Action, e.Details)
		}
		return w.Flush()
	},
}

// configCmd groups configuration-file management.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the Keywarden configuration file",
}

// configInitCmd writes the effective configuration to disk so it can be
// edited, into the user config dir or, with --system, /etc/keywarden.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the current configuration to a config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		system, _ := cmd.Flags().GetBool("system")
		path, err := config.WriteConfigFile(&cfg, system)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote configuration to %s.\n", path)
		return nil
	},
}

func auditDetails(fingerprint, algorithm string) string {
	return fmt.Sprintf("fingerprint: %s, algorithm: %s", fingerprint, algorithm)
}
