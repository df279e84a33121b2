package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default data/config directory name under $HOME.
	ConfigDir = ".usertracker"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
	// envPrefix prefixes every environment override, e.g.
	// TRACKER_GATEWAY_BASE_URL.
	envPrefix = "TRACKER"
)

// ConfigPath returns the config file location, honoring TRACKER_CONFIG.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("TRACKER_CONFIG")); explicit != "" {
		if strings.HasPrefix(explicit, "~") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, explicit[1:]), nil
		}
		return explicit, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

// Load reads the config file if present, applies env overrides and
// fills any remaining defaults. A missing file is not an error.
func Load() (*Config, error) {
	LoadEnvFileCandidates()

	cfg := DefaultConfig()
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults plus env overrides.
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := envconfig.Process(envPrefix, &cfg.Paths); err != nil {
		return nil, fmt.Errorf("paths env overrides: %w", err)
	}
	if err := envconfig.Process(envPrefix, &cfg.Gateway); err != nil {
		return nil, fmt.Errorf("gateway env overrides: %w", err)
	}
	if err := envconfig.Process(envPrefix, &cfg.Scan); err != nil {
		return nil, fmt.Errorf("scan env overrides: %w", err)
	}

	normalize(cfg)
	return cfg, nil
}

// normalize fills derived paths and clamps nonsensical values.
func normalize(cfg *Config) {
	if cfg.Paths.DataDir == "" {
		cfg.Paths.DataDir = DefaultConfig().Paths.DataDir
	}
	if cfg.Paths.DatabaseFile == "" {
		cfg.Paths.DatabaseFile = filepath.Join(cfg.Paths.DataDir, "users.db")
	}
	if cfg.Paths.DiscoveryLog == "" {
		cfg.Paths.DiscoveryLog = filepath.Join(cfg.Paths.DataDir, "logs.txt")
	}
	if cfg.Scan.PageSize <= 0 {
		cfg.Scan.PageSize = 100
	}
	if cfg.Scan.HeartbeatInterval <= 0 {
		cfg.Scan.HeartbeatInterval = 5 * time.Minute
	}
}
