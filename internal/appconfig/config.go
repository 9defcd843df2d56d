// Package appconfig loads the swap engine daemon's on-disk configuration:
// data directory layout, backend endpoints, the relay URL, the
// account-chain HTLC contract, and the timing/fee parameters from
// internal/config. Follows the same load-or-create YAML file idiom used
// throughout this codebase's configuration layers.
package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/atomicswap/htlcengine/internal/backend"
	"github.com/atomicswap/htlcengine/internal/config"
)

// NetworkType selects mainnet or testnet parameters and data isolation.
type NetworkType string

const (
	NetworkMainnet NetworkType = "mainnet"
	NetworkTestnet NetworkType = "testnet"
)

// Config holds all configuration for the swapengine daemon.
type Config struct {
	NetworkType NetworkType `yaml:"network_type"`

	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	Relay   RelayConfig   `yaml:"relay"`
	EVM     EVMConfig     `yaml:"evm"`

	// Backends holds blockchain API configurations per UTXO chain symbol.
	Backends map[string]*backend.Config `yaml:"backends,omitempty"`

	Swap    config.SwapConfig    `yaml:"-"`
	Watcher config.WatcherConfig `yaml:"-"`
}

// StorageConfig holds the SQLite database location.
type StorageConfig struct {
	// Path is the SQLite database file, relative to DataDir if not absolute.
	Path string `yaml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// RelayConfig holds the trusted swap-message relay connection settings.
type RelayConfig struct {
	URL                  string        `yaml:"url"`
	InitialRetryInterval time.Duration `yaml:"initial_retry_interval"`
	MaxRetryInterval     time.Duration `yaml:"max_retry_interval"`
	MaxRetries           int           `yaml:"max_retries"`
	DialTimeout          time.Duration `yaml:"dial_timeout"`
}

// EVMConfig holds the account-model chain RPC endpoint and the deployed
// HTLC contract address this node trades against.
type EVMConfig struct {
	RPCURL          string `yaml:"rpc_url"`
	ContractAddress string `yaml:"contract_address"`
}

// DefaultConfig returns a Config with sensible defaults. Timing and fee
// parameters come from internal/config's own defaults rather than being
// duplicated here.
func DefaultConfig() *Config {
	return &Config{
		NetworkType: NetworkMainnet,
		Storage: StorageConfig{
			Path: "swapengine.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Relay: RelayConfig{
			InitialRetryInterval: 10 * time.Second,
			MaxRetryInterval:     10 * time.Minute,
			MaxRetries:           50,
			DialTimeout:          15 * time.Second,
		},
		Swap:    config.DefaultSwapConfig(),
		Watcher: config.DefaultWatcherConfig(),
	}
}

// ConfigFileName is the default config file name within a data directory.
const ConfigFileName = "config.yaml"

// LoadConfig loads configuration from <dataDir>/config.yaml, creating one
// populated with defaults if it doesn't already exist.
func LoadConfig(dataDir string) (*Config, error) {
	expandedDir := expandPath(dataDir)
	path := filepath.Join(expandedDir, ConfigFileName)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("appconfig: create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("appconfig: read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("appconfig: parse config file: %w", err)
	}
	if err := cfg.Swap.Validate(); err != nil {
		return nil, fmt.Errorf("appconfig: invalid swap timing configuration: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to path as YAML, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("appconfig: create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("appconfig: marshal config: %w", err)
	}

	header := []byte("# swapengine configuration - generated automatically on first run\n\n")
	if err := os.WriteFile(path, append(header, data...), 0600); err != nil {
		return fmt.Errorf("appconfig: write config file: %w", err)
	}
	return nil
}

// DatabasePath resolves Storage.Path against dataDir if it isn't absolute.
func (c *Config) DatabasePath(dataDir string) string {
	if filepath.IsAbs(c.Storage.Path) {
		return c.Storage.Path
	}
	return filepath.Join(expandPath(dataDir), c.Storage.Path)
}

// IsTestnet reports whether the daemon is configured for testnet.
func (c *Config) IsTestnet() bool {
	return c.NetworkType == NetworkTestnet
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
