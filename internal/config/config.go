package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a configuration file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	cfg.ConfigPath = path
	return cfg, nil
}

// Parse parses configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration populated entirely with built-in defaults,
// suitable for running the daemon without a configuration file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for unset configuration options. The
// numeric defaults mirror the historical tunables of the original scanner.
func applyDefaults(cfg *Config) {
	if cfg.Version == "" {
		cfg.Version = "1"
	}
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}

	if cfg.Logging.BaseDir == "" {
		cfg.Logging.BaseDir = "/var/log/ipscand"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.TimestampFormat == "" {
		cfg.Logging.TimestampFormat = time.RFC3339
	}
	if cfg.Logging.Rotation.MaxSize == "" {
		cfg.Logging.Rotation.MaxSize = "100MB"
	}
	if cfg.Logging.Rotation.MaxFiles == 0 {
		cfg.Logging.Rotation.MaxFiles = 10
	}

	if cfg.Store.DeleteTimeout == 0 {
		cfg.Store.DeleteTimeout = Duration(60 * time.Second)
	}
	if cfg.Store.TestStateCompleteSleep == 0 {
		cfg.Store.TestStateCompleteSleep = Duration(2 * time.Second)
	}
	if cfg.Store.DeleteWaitPeriod == 0 {
		cfg.Store.DeleteWaitPeriod = Duration(3 * time.Second)
	}

	if cfg.Scan.TCPTimeout == 0 {
		cfg.Scan.TCPTimeout = Duration(3 * time.Second)
	}
	if cfg.Scan.UDPTimeout == 0 {
		cfg.Scan.UDPTimeout = Duration(3 * time.Second)
	}
	if cfg.Scan.ICMPv6Timeout == 0 {
		cfg.Scan.ICMPv6Timeout = Duration(2 * time.Second)
	}
	if cfg.Scan.MaxChildren == 0 {
		cfg.Scan.MaxChildren = 20
	}
	if cfg.Scan.MaxUDPChildren == 0 {
		cfg.Scan.MaxUDPChildren = 20
	}
	if cfg.Scan.MaxPortsPerChild == 0 {
		cfg.Scan.MaxPortsPerChild = 4
	}
	if cfg.Scan.MaxUDPPortsPerChild == 0 {
		cfg.Scan.MaxUDPPortsPerChild = 4
	}
	if cfg.Scan.DefNumPorts == 0 {
		cfg.Scan.DefNumPorts = 15
	}
	if cfg.Scan.NumUDPPorts == 0 {
		cfg.Scan.NumUDPPorts = 10
	}
	if cfg.Scan.NumUserDefPorts == 0 {
		cfg.Scan.NumUserDefPorts = 8
	}
	if cfg.Scan.MaxQueries == 0 {
		cfg.Scan.MaxQueries = 64
	}
	if cfg.Scan.MaxQueryStrLen == 0 {
		cfg.Scan.MaxQueryStrLen = 256
	}
	if cfg.Scan.MaxQueryNameLen == 0 {
		cfg.Scan.MaxQueryNameLen = 20
	}
	if cfg.Scan.MaxQueryValLen == 0 {
		cfg.Scan.MaxQueryValLen = 32
	}
}

// GetLogPath returns the full path for the daemon log file.
func (c *Config) GetLogPath() string {
	if c.Logging.File == "" {
		return ""
	}
	if os.IsPathSeparator(c.Logging.File[0]) {
		return c.Logging.File
	}
	return c.Logging.BaseDir + string(os.PathSeparator) + c.Logging.File
}

// ParseSize parses a size string like "100MB" into bytes.
func ParseSize(s string) (int64, error) {
	return parseSize(s)
}
