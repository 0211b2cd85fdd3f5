// Package logging sets up the recorder's slog output and the zerolog
// adapter used by the infrastructure managers.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const logPrefix = "lview"

// SessionLogPath names the log file of one recorder run. The target pid is
// part of the name once it is known, so runs against several clients started
// in the same second do not share a file.
func SessionLogPath(logsDir string, pid int, start time.Time) string {
	stamp := start.Format("20060102_150405")
	if pid <= 0 {
		return filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", logPrefix, stamp))
	}
	return filepath.Join(logsDir, fmt.Sprintf("%s_%d_%s.log", logPrefix, pid, stamp))
}

// OpenSessionLog creates the log directory, moves a leftover file at path
// to path+".old" and opens path for appending.
func OpenSessionLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs dir: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".old"); err != nil {
			return nil, fmt.Errorf("failed to rotate log file: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
