package config

import (
	"os"
	"path/filepath"
)

// appDir returns ~/.config/royalty-monitor, or "." without a home directory.
func appDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(homeDir, ".config", "royalty-monitor")
}

// defaultExportDir returns the default offline export directory.
//
// Returns: ~/.config/royalty-monitor/exports.
func defaultExportDir() string {
	return filepath.Join(appDir(), "exports")
}

// defaultDBPath returns the default database file path.
//
// Returns: ~/.config/royalty-monitor/snapshots.db.
func defaultDBPath() string {
	return filepath.Join(appDir(), "snapshots.db")
}

// defaultSignalDir returns the default signal directory.
//
// Returns: ~/.config/royalty-monitor/signals.
func defaultSignalDir() string {
	return filepath.Join(appDir(), "signals")
}

// DefaultConfigPath returns the default configuration file path.
//
// Returns: ~/.config/royalty-monitor/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(appDir(), "config.yaml")
}
