// Package config provides configuration utilities for the application.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands ~ and environment variables in a file path.
// It handles both ~ for home directory and $VAR style environment variables.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}

// DataDir returns the default directory for application state: the quota
// state file and the sentiment database live here unless configured
// otherwise.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "tickerpulse")
}

// DefaultStatePath is the default quota store file location.
func DefaultStatePath() string {
	return filepath.Join(DataDir(), "rate_limit_state.json")
}

// DefaultDatabasePath is the default sentiment database location.
func DefaultDatabasePath() string {
	return filepath.Join(DataDir(), "sentiments.db")
}
