package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads and merges configuration from global and machine paths.
// Order of precedence (highest to lowest): machine config, global config,
// defaults. Missing files are not errors; malformed JSON returns an error.
func Load(globalPath, machinePath string) (*Config, error) {
	cfg := DefaultConfig()

	if globalPath != "" {
		if err := mergeConfigFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}

	if machinePath != "" {
		if err := mergeConfigFile(cfg, machinePath); err != nil {
			return nil, fmt.Errorf("loading machine config: %w", err)
		}
	}

	applyDefaultPaths(cfg)

	return cfg, nil
}

// LoadDefault loads configuration from conventional paths.
// Global: ~/.hidmend/config.json
// Machine: /etc/hidmend/config.json
func LoadDefault() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}

	globalPath := filepath.Join(homeDir, ".hidmend", "config.json")
	machinePath := filepath.Join("/etc", "hidmend", "config.json")

	return Load(globalPath, machinePath)
}

// applyDefaultPaths fills unset paths from the state directory convention.
// Everything lives under ~/.hidmend unless configured otherwise.
func applyDefaultPaths(cfg *Config) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// No home directory: leave paths as configured; validation will
		// reject empty ones.
		return
	}

	stateDir := filepath.Join(homeDir, ".hidmend")
	if cfg.IntakeDir == "" {
		cfg.IntakeDir = filepath.Join(stateDir, "intake")
	}
	if cfg.MarkerPath == "" {
		cfg.MarkerPath = filepath.Join(stateDir, "progress")
	}
	if cfg.HistoryDB == "" {
		cfg.HistoryDB = filepath.Join(stateDir, "history.db")
	}
	if cfg.LogPath == "" {
		cfg.LogPath = filepath.Join(stateDir, "hidmend.log")
	}
}

// mergeConfigFile reads a JSON config file and merges it into the base config.
// Missing files are silently skipped. Malformed JSON returns an error.
func mergeConfigFile(base *Config, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // Missing file is not an error
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	// Scalars override when set
	if loaded.IntakeDir != "" {
		base.IntakeDir = loaded.IntakeDir
	}
	if loaded.MarkerPath != "" {
		base.MarkerPath = loaded.MarkerPath
	}
	if loaded.HistoryDB != "" {
		base.HistoryDB = loaded.HistoryDB
	}
	if loaded.LogPath != "" {
		base.LogPath = loaded.LogPath
	}
	if loaded.RebootCmd != nil {
		base.RebootCmd = loaded.RebootCmd
	}

	// List-valued sections replace wholesale: merging individual steps or
	// flags would produce sequences nobody wrote down.
	if loaded.Steps != nil {
		base.Steps = loaded.Steps
	}
	if loaded.Installer.Extensions != nil {
		base.Installer.Extensions = loaded.Installer.Extensions
	}
	if loaded.Installer.SilentArgs != nil {
		base.Installer.SilentArgs = loaded.Installer.SilentArgs
	}
	if loaded.Devices.Enumerate != nil {
		base.Devices.Enumerate = loaded.Devices.Enumerate
	}
	if loaded.Devices.Disable != nil {
		base.Devices.Disable = loaded.Devices.Disable
	}
	if loaded.Devices.Remove != nil {
		base.Devices.Remove = loaded.Devices.Remove
	}
	if loaded.Devices.Exclude != nil {
		base.Devices.Exclude = loaded.Devices.Exclude
	}

	return nil
}

// Validate checks that the configuration is complete enough to run.
func (c *Config) Validate() error {
	if c.IntakeDir == "" {
		return fmt.Errorf("intake_dir must be set")
	}
	if c.MarkerPath == "" {
		return fmt.Errorf("marker_path must be set")
	}
	if len(c.Steps) == 0 {
		return fmt.Errorf("at least one step must be configured")
	}
	if len(c.Installer.Extensions) == 0 {
		return fmt.Errorf("installer.extensions must not be empty")
	}
	return nil
}
