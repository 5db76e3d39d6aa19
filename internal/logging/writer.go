// Package logging provides log writing with rotation for ipscand.
package logging

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const (
	logFileFlags = os.O_APPEND | os.O_CREATE | os.O_WRONLY
	logFilePerm  = os.FileMode(0o644)
)

// openLogFile opens (or creates) path for append-only writing. textWriter is
// the sole place that formats a line, including its timestamp, so this
// writer never touches timestamps itself.
func openLogFile(path string) (*os.File, error) {
	return os.OpenFile(path, logFileFlags, logFilePerm)
}

// Writer is a log writer with optional size-based rotation. It implements
// io.WriteCloser and is meant to sit behind a textWriter (see logger.go),
// which already formats each event (including its timestamp) into one line
// before calling Write.
type Writer struct {
	mu       sync.Mutex
	file     *os.File
	writer   *bufio.Writer
	path     string
	maxSize  int64
	maxFiles int
	size     int64
}

// NewWriter creates a new log writer at path. maxSize is the size in bytes
// that triggers rotation (0 disables rotation); maxFiles bounds the number
// of retained backups.
func NewWriter(path string, maxSize int64, maxFiles int) (*Writer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	file, err := openLogFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("getting file info: %w", err)
	}

	return &Writer{
		file:     file,
		writer:   bufio.NewWriter(file),
		path:     path,
		maxSize:  maxSize,
		maxFiles: maxFiles,
		size:     info.Size(),
	}, nil
}

// Write implements io.Writer, rotating first if p would push the current
// file past maxSize.
func (w *Writer) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.maxSize > 0 && w.size+int64(len(p)) > w.maxSize {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("rotating log: %w", err)
		}
	}

	n, err = w.writer.Write(p)
	if err != nil {
		return n, err
	}
	w.size += int64(n)

	if err := w.writer.Flush(); err != nil {
		return n, err
	}
	return n, nil
}

// rotate closes the current file, shifts backups, and opens a fresh file at
// path.
func (w *Writer) rotate() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	if err := w.file.Close(); err != nil {
		return err
	}

	if err := w.rotateFiles(); err != nil {
		return err
	}

	file, err := openLogFile(w.path)
	if err != nil {
		return err
	}

	w.file = file
	w.writer = bufio.NewWriter(file)
	w.size = 0
	return nil
}

// rotateFiles shifts path.1..path.(maxFiles-1) up by one suffix, dropping
// path.maxFiles, then moves path itself to path.1.
func (w *Writer) rotateFiles() error {
	oldest := fmt.Sprintf("%s.%d", w.path, w.maxFiles)
	os.Remove(oldest)

	for i := w.maxFiles - 1; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", w.path, i)
		newPath := fmt.Sprintf("%s.%d", w.path, i+1)
		os.Rename(oldPath, newPath)
	}

	if err := os.Rename(w.path, w.path+".1"); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Close()
}

// Sync flushes the buffer to disk.
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Path returns the log file path.
func (w *Writer) Path() string {
	return w.path
}

// Size returns the current log file size.
func (w *Writer) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// MultiWriter fans one stream of bytes out to several writers, used to send
// every log line to both stdout and a rotating file.
type MultiWriter struct {
	writers []io.WriteCloser
}

// NewMultiWriter creates a writer that duplicates output to multiple writers.
func NewMultiWriter(writers ...io.WriteCloser) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write writes to all writers, stopping at the first error.
func (mw *MultiWriter) Write(p []byte) (n int, err error) {
	for _, w := range mw.writers {
		n, err = w.Write(p)
		if err != nil {
			return n, err
		}
	}
	return len(p), nil
}

// Close closes all writers, returning the first error encountered.
func (mw *MultiWriter) Close() error {
	var firstErr error
	for _, w := range mw.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// nopCloser wraps an io.Writer and provides a no-op Close, for stdout/stderr.
type nopCloser struct {
	io.Writer
}

func (n *nopCloser) Close() error {
	return nil
}

// NopCloser adapts w into an io.WriteCloser whose Close is a no-op.
func NopCloser(w io.Writer) io.WriteCloser {
	return &nopCloser{w}
}
