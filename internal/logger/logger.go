// Package logger provides verbose logging for sercha-code.
// When verbose mode is enabled via the --verbose flag, debug messages
// are printed to stderr to help users follow the indexing and search pipelines.
//
// A Logger is constructed once by the composition root and injected into
// every service that needs it; there is no package-level logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Logger writes prefixed log lines to an output writer.
type Logger struct {
	mu      sync.RWMutex
	verbose bool
	output  io.Writer
}

// New creates a logger writing to w. A nil writer defaults to os.Stderr.
func New(w io.Writer, verbose bool) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{output: w, verbose: verbose}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return New(io.Discard, false)
}

// SetVerbose enables or disables verbose logging.
func (l *Logger) SetVerbose(v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func (l *Logger) IsVerbose() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.verbose
}

// SetOutput sets the output writer for logs.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

// Debug prints a message if verbose mode is enabled.
func (l *Logger) Debug(format string, args ...any) {
	l.printf(true, "[DEBUG] "+format+"\n", args...)
}

// Section prints a section header if verbose mode is enabled.
func (l *Logger) Section(name string) {
	l.printf(true, "\n=== %s ===\n", name)
}

// Info prints an informational message if verbose mode is enabled.
func (l *Logger) Info(format string, args ...any) {
	l.printf(true, "[INFO] "+format+"\n", args...)
}

// Warn prints a warning message. Warnings are printed regardless of verbose mode.
func (l *Logger) Warn(format string, args ...any) {
	l.printf(false, "[WARN] "+format+"\n", args...)
}

func (l *Logger) printf(verboseOnly bool, format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if verboseOnly && !l.verbose {
		return
	}
	fmt.Fprintf(l.output, format, args...)
}
