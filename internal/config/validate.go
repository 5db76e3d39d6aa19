package config

import (
	"errors"
	"fmt"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Listen == "" {
		errs = append(errs, ValidationError{Field: "listen", Message: "listen address is required"})
	}

	if cfg.Scan.TCPTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "scan.tcp_timeout", Message: "must be greater than zero"})
	}
	if cfg.Scan.UDPTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "scan.udp_timeout", Message: "must be greater than zero"})
	}
	if cfg.Scan.ICMPv6Timeout <= 0 {
		errs = append(errs, ValidationError{Field: "scan.icmpv6_timeout", Message: "must be greater than zero"})
	}
	if cfg.Scan.MaxChildren <= 0 {
		errs = append(errs, ValidationError{Field: "scan.max_children", Message: "must be greater than zero"})
	}
	if cfg.Scan.MaxUDPChildren <= 0 {
		errs = append(errs, ValidationError{Field: "scan.max_udp_children", Message: "must be greater than zero"})
	}
	if cfg.Scan.MaxPortsPerChild <= 0 {
		errs = append(errs, ValidationError{Field: "scan.max_ports_per_child", Message: "must be greater than zero"})
	}
	if cfg.Scan.MaxUDPPortsPerChild <= 0 {
		errs = append(errs, ValidationError{Field: "scan.max_udp_ports_per_child", Message: "must be greater than zero"})
	}
	if cfg.Scan.NumUserDefPorts < 0 {
		errs = append(errs, ValidationError{Field: "scan.num_user_def_ports", Message: "must not be negative"})
	}
	if cfg.Scan.MaxQueries <= 0 {
		errs = append(errs, ValidationError{Field: "scan.max_queries", Message: "must be greater than zero"})
	}
	if cfg.Scan.MaxQueryStrLen <= 0 {
		errs = append(errs, ValidationError{Field: "scan.max_query_str_len", Message: "must be greater than zero"})
	}
	if cfg.Scan.MaxQueryNameLen <= 0 {
		errs = append(errs, ValidationError{Field: "scan.max_query_name_len", Message: "must be greater than zero"})
	}
	if cfg.Scan.MaxQueryValLen <= 0 {
		errs = append(errs, ValidationError{Field: "scan.max_query_val_len", Message: "must be greater than zero"})
	}

	if cfg.Store.DeleteTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "store.delete_timeout", Message: "must be greater than zero"})
	}
	if cfg.Store.TestStateCompleteSleep <= 0 {
		errs = append(errs, ValidationError{Field: "store.teststate_complete_sleep", Message: "must be greater than zero"})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	return Validate(c)
}
