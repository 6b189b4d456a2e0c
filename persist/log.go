// Package persist provides small file-backed durability helpers used by
// the worker package and the transcoder command: a leveled logger that brackets its output
// with STARTUP/SHUTDOWN banners so a log file makes it obvious when a
// worker process started and stopped.
package persist

import (
	"fmt"
	"log"
	"os"
	"time"
)

// Logger is a file-backed logger with an optional verbose mode. It wraps
// the standard library's log.Logger rather than pulling in a structured
// logging dependency. cmd/transcoder constructs one and hands it to the
// worker's Executor, which the Driver also logs progress through.
type Logger struct {
	*log.Logger
	verbose bool
	file    *os.File
}

// NewLogger opens (creating if necessary) the file at path and returns a
// Logger that writes a STARTUP banner immediately.
func NewLogger(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0660)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	l := &Logger{
		Logger: log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile|log.LUTC),
		file:   f,
	}
	l.Println("STARTUP: transcoder log opened", time.Now().UTC().Format(time.RFC3339))
	return l, nil
}

// SetVerbose toggles whether Verbosef actually writes anything.
func (l *Logger) SetVerbose(v bool) {
	l.verbose = v
}

// Verbosef logs only when verbose mode is enabled, for the --verbose,
// per-item tracing spec.md's worker command describes.
func (l *Logger) Verbosef(format string, args ...interface{}) {
	if l.verbose {
		l.Printf(format, args...)
	}
}

// Close writes a SHUTDOWN banner and closes the underlying file.
func (l *Logger) Close() error {
	l.Println("SHUTDOWN: transcoder log closed", time.Now().UTC().Format(time.RFC3339))
	return l.file.Close()
}
