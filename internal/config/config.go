// Package config provides configuration types and loading for the
// tracker. Settings come from an optional JSON file with environment
// overrides on top.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration struct.
type Config struct {
	Paths   PathsConfig   `json:"paths"`
	Gateway GatewayConfig `json:"gateway"`
	Scan    ScanConfig    `json:"scan"`
}

// PathsConfig groups filesystem locations.
type PathsConfig struct {
	DataDir      string `json:"dataDir" envconfig:"DATA_DIR"`
	DatabaseFile string `json:"databaseFile" envconfig:"DATABASE_FILE"`
	DiscoveryLog string `json:"discoveryLog" envconfig:"DISCOVERY_LOG"`
}

// GatewayConfig configures the external chat bridge: where to query it
// and where it pushes live events.
type GatewayConfig struct {
	BaseURL    string `json:"baseUrl" envconfig:"GATEWAY_BASE_URL"`
	Token      string `json:"token" envconfig:"GATEWAY_TOKEN"`
	ListenAddr string `json:"listenAddr" envconfig:"GATEWAY_LISTEN_ADDR"`
}

// ScanConfig groups history walking settings.
type ScanConfig struct {
	PageSize          int           `json:"pageSize" envconfig:"PAGE_SIZE"`
	HeartbeatInterval time.Duration `json:"heartbeatInterval" envconfig:"HEARTBEAT_INTERVAL"`
}

// DefaultConfig returns the defaults applied before file and env
// overrides.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := filepath.Join(home, ConfigDir)
	return &Config{
		Paths: PathsConfig{
			DataDir:      dataDir,
			DatabaseFile: filepath.Join(dataDir, "users.db"),
			DiscoveryLog: filepath.Join(dataDir, "logs.txt"),
		},
		Gateway: GatewayConfig{
			BaseURL:    "http://127.0.0.1:8790",
			ListenAddr: "127.0.0.1:8791",
		},
		Scan: ScanConfig{
			PageSize:          100,
			HeartbeatInterval: 5 * time.Minute,
		},
	}
}
