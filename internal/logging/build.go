package logging

import (
	"os"

	"github.com/ipscand/ipscand/internal/config"
)

// Build constructs a Logger from a LoggingConfig, fanning events out to
// stdout (if enabled, or whenever no file is configured) and a rotating file
// (if a file path is configured).
func Build(cfg config.LoggingConfig) (Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = LevelInfo
	}

	var writers []EventWriter

	if cfg.Stdout || cfg.File == "" {
		writers = append(writers, NewTextWriter(NopCloser(os.Stdout), cfg.TimestampFormat))
	}

	if cfg.File != "" {
		maxSize, err := config.ParseSize(cfg.Rotation.MaxSize)
		if err != nil {
			maxSize = 100 * 1024 * 1024
		}
		path := cfg.File
		if !os.IsPathSeparator(path[0]) {
			path = cfg.BaseDir + string(os.PathSeparator) + path
		}
		w, err := NewWriter(path, maxSize, cfg.Rotation.MaxFiles)
		if err != nil {
			return nil, err
		}
		writers = append(writers, NewTextWriter(w, cfg.TimestampFormat))
	}

	return New(level, writers...), nil
}
