// Copyright (c) 2026 Keywarden Team
// Keywarden - per-user SSH authorized_keys curation
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads and persists Keywarden's configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// DatabaseConfig selects the audit-trail backend.
type DatabaseConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
	DSN  string `mapstructure:"dsn" yaml:"dsn"`
}

// Config is the full application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Audit    bool           `mapstructure:"audit" yaml:"audit"`
	Debug    bool           `mapstructure:"debug" yaml:"debug"`
}

// getConfigPath returns the full path for the configuration file.
func getConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Keywarden")
		default:
			configDir = "/etc/keywarden"
		}
	} else {
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "keywarden")
	}

	return filepath.Join(configDir, "keywarden.yaml"), nil
}

// Load resolves the configuration with the usual precedence: defaults, then
// config file (an explicit --config path wins over the search path), then
// KEYWARDEN_* environment variables, then command-line flags.
func Load(cmd *cobra.Command, cfgFile string) (Config, error) {
	var c Config
	v := viper.New()

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "./keywarden-audit.db")
	v.SetDefault("audit", false)
	v.SetDefault("debug", false)

	v.SetConfigName("keywarden")
	v.SetConfigType("yaml")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
	if userConfigPath, err := getConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := getConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; a malformed one is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
	}

	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix("keywarden")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cmd != nil {
		// Flag names differ from config keys, so bind each explicitly. The
		// flags live on the root command and are inherited by subcommands.
		flags := cmd.Root().PersistentFlags()
		for key, name := range map[string]string{
			"database.type": "db-type",
			"database.dsn":  "db-dsn",
			"audit":         "audit",
			"debug":         "debug",
		} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return c, err
				}
			}
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}

// WriteConfigFile persists the configuration as YAML, creating the
// destination directory if needed, and returns the path written.
func WriteConfigFile(c *Config, system bool) (string, error) {
	path, err := getConfigPath(system)
	if err != nil {
		return "", err
	}
	if err := writeConfigTo(c, path); err != nil {
		return "", err
	}
	return path, nil
}

func writeConfigTo(c *Config, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	// 0600: the DSN may carry database credentials.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	return nil
}
