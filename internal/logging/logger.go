package logging

import (
	"fmt"
	"io"
	"sync"
)

// Logger is the port used throughout ipscand for event logging. Infrastructure
// (a file Writer, stdout, or both via MultiWriter) implements the output side.
type Logger interface {
	// Log logs an event directly.
	Log(event LogEvent)
	// Debug logs a debug-level event.
	Debug(component, eventType, message string, meta map[string]any)
	// Info logs an info-level event.
	Info(component, eventType, message string, meta map[string]any)
	// Warn logs a warning-level event.
	Warn(component, eventType, message string, meta map[string]any)
	// Error logs an error-level event.
	Error(component, eventType, message string, meta map[string]any)
	// Close closes the logger and all underlying writers.
	Close() error
}

// EventWriter is the port interface for log event writers. Infrastructure
// implements this for different output targets (rotating file, stdout, ...).
type EventWriter interface {
	Write(event LogEvent) error
	Close() error
}

// textWriter adapts an io.WriteCloser into an EventWriter by formatting each
// event as a single "ipscand: " prefixed line, matching the original CGI
// scanner's plain-text log convention.
type textWriter struct {
	mu              sync.Mutex
	out             io.WriteCloser
	timestampFormat string
}

// NewTextWriter wraps out so each logged event is rendered as one text line.
func NewTextWriter(out io.WriteCloser, timestampFormat string) EventWriter {
	return &textWriter{out: out, timestampFormat: timestampFormat}
}

func (w *textWriter) Write(event LogEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	line := fmt.Sprintf("ipscand: %s [%s] %s %s: %s",
		FormatTimestamp(event.Timestamp, w.timestampFormat),
		event.Level, event.Component, event.EventType, event.Message)
	if attack, ok := event.Metadata["attack"]; ok {
		line += fmt.Sprintf(" ATTACK?=%v", attack)
	}
	for k, v := range event.Metadata {
		if k == "attack" {
			continue
		}
		line += fmt.Sprintf(" %s=%v", k, v)
	}
	line += "\n"

	_, err := w.out.Write([]byte(line))
	return err
}

func (w *textWriter) Close() error {
	return w.out.Close()
}

// logger is the default Logger implementation, dispatching each event to one
// or more EventWriters and silently dropping events below minLevel.
type logger struct {
	mu       sync.Mutex
	writers  []EventWriter
	minLevel Level
}

// New creates a Logger that writes every event at or above minLevel to all
// of writers.
func New(minLevel Level, writers ...EventWriter) Logger {
	return &logger{writers: writers, minLevel: minLevel}
}

func (l *logger) Log(event LogEvent) {
	if event.Level < l.minLevel {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, w := range l.writers {
		_ = w.Write(event)
	}
}

func (l *logger) Debug(component, eventType, message string, meta map[string]any) {
	l.Log(NewLogEvent(LevelDebug, component, eventType, message).WithMetadata(meta))
}

func (l *logger) Info(component, eventType, message string, meta map[string]any) {
	l.Log(NewLogEvent(LevelInfo, component, eventType, message).WithMetadata(meta))
}

func (l *logger) Warn(component, eventType, message string, meta map[string]any) {
	l.Log(NewLogEvent(LevelWarn, component, eventType, message).WithMetadata(meta))
}

func (l *logger) Error(component, eventType, message string, meta map[string]any) {
	l.Log(NewLogEvent(LevelError, component, eventType, message).WithMetadata(meta))
}

func (l *logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var firstErr error
	for _, w := range l.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
