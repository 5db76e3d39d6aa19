// Package config provides configuration types and YAML parsing for ipscand.
package config

import "time"

// Config represents the root configuration structure for the scanner daemon.
type Config struct {
	Version string        `yaml:"version"`
	Listen  string        `yaml:"listen"`
	Logging LoggingConfig `yaml:"logging"`
	Store   StoreConfig   `yaml:"store"`
	Scan    ScanConfig    `yaml:"scan"`

	// ConfigPath is the path the configuration was loaded from (not serialized).
	ConfigPath string `yaml:"-"`
}

// LoggingConfig defines logging destinations and rotation defaults.
type LoggingConfig struct {
	BaseDir         string         `yaml:"base_dir"`
	Level           string         `yaml:"level"`
	TimestampFormat string         `yaml:"timestamp_format"`
	Stdout          bool           `yaml:"stdout"`
	File            string         `yaml:"file,omitempty"`
	Rotation        RotationConfig `yaml:"rotation"`
}

// RotationConfig defines log file rotation settings.
type RotationConfig struct {
	MaxSize  string `yaml:"max_size"`
	MaxFiles int    `yaml:"max_files"`
	Compress bool   `yaml:"compress"`
}

// StoreConfig defines the result store location and lifecycle tunables.
type StoreConfig struct {
	// Path is the bbolt database file path. Empty selects the in-memory store.
	Path string `yaml:"path,omitempty"`
	// DeleteTimeout bounds how long the completion-wait loop polls before
	// giving up and deleting the session regardless (IPSCAN_DELETE_TIMEOUT).
	DeleteTimeout Duration `yaml:"delete_timeout"`
	// TestStateCompleteSleep is the poll interval of the completion-wait loop
	// (IPSCAN_TESTSTATE_COMPLETE_SLEEP).
	TestStateCompleteSleep Duration `yaml:"teststate_complete_sleep"`
	// DeleteWaitPeriod is the grace sleep between completion and deletion
	// (IPSCAN_DELETE_WAIT_PERIOD).
	DeleteWaitPeriod Duration `yaml:"delete_wait_period"`
}

// ScanConfig defines per-probe timeouts, fan-out limits, and port budgets.
type ScanConfig struct {
	// TCPTimeout bounds a single TCP connect-probe (TIMEOUTSECS).
	TCPTimeout Duration `yaml:"tcp_timeout"`
	// UDPTimeout bounds a single UDP application probe (UDPTIMEOUTSECS).
	UDPTimeout Duration `yaml:"udp_timeout"`
	// ICMPv6Timeout bounds the ICMPv6 echo probe (ICMPV6_TIMEOUTSECS).
	ICMPv6Timeout Duration `yaml:"icmpv6_timeout"`

	// MaxChildren caps concurrent TCP probe workers (MAXCHILDREN).
	MaxChildren int `yaml:"max_children"`
	// MaxUDPChildren caps concurrent UDP probe workers (MAXUDPCHILDREN).
	MaxUDPChildren int `yaml:"max_udp_children"`
	// MaxPortsPerChild caps TCP ports handed to one worker (MAXPORTSPERCHILD).
	MaxPortsPerChild int `yaml:"max_ports_per_child"`
	// MaxUDPPortsPerChild caps UDP ports handed to one worker (MAXUDPPORTSPERCHILD).
	MaxUDPPortsPerChild int `yaml:"max_udp_ports_per_child"`

	// DefNumPorts is the number of built-in TCP ports scanned by default (DEFNUMPORTS).
	DefNumPorts int `yaml:"def_num_ports"`
	// NumUDPPorts is the number of built-in UDP ports scanned by default (NUMUDPPORTS).
	NumUDPPorts int `yaml:"num_udp_ports"`
	// NumUserDefPorts caps the number of caller-supplied custom ports (NUMUSERDEFPORTS).
	NumUserDefPorts int `yaml:"num_user_def_ports"`

	// MaxQueries caps the number of query-string parameters accepted (MAXQUERIES).
	MaxQueries int `yaml:"max_queries"`
	// MaxQueryStrLen caps the length of the whole query string (MAXQUERYSTRLEN).
	MaxQueryStrLen int `yaml:"max_query_str_len"`
	// MaxQueryNameLen caps one parameter name's length (MAXQUERYNAMELEN).
	MaxQueryNameLen int `yaml:"max_query_name_len"`
	// MaxQueryValLen caps one parameter value's length (MAXQUERYVALLEN).
	MaxQueryValLen int `yaml:"max_query_val_len"`

	// EnableICMPv6 toggles the ICMPv6 echo reachability probe. It requires
	// CAP_NET_RAW and is disabled automatically if the raw socket cannot be
	// opened, regardless of this setting.
	EnableICMPv6 bool `yaml:"enable_icmpv6"`
}

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// of human-readable strings such as "30s" or "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
