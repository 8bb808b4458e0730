package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dimasma0305/shellysync/internal/log"
)

// EnsureDirectoriesExist creates the parent directory of every non-empty path
func EnsureDirectoriesExist(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil {
			return fmt.Errorf("failed to prepare %s: %w", p, err)
		}
	}
	return nil
}

// WritePIDFile records pid in pidFile, creating the state directory
func WritePIDFile(pidFile string, pid int) error {
	if err := EnsureDirectoriesExist(pidFile); err != nil {
		return err
	}
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(pid)+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	log.Debug("PID %d written to %s", pid, pidFile)
	return nil
}

// RemovePIDFile deletes pidFile; a missing file is not an error
func RemovePIDFile(pidFile string) error {
	if err := os.Remove(pidFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// ReadPIDFromFile returns the positive PID stored in pidFile. A missing file
// yields an error satisfying os.IsNotExist.
func ReadPIDFromFile(pidFile string) (int, error) {
	//nolint:gosec // G304: PID file path is constructed by application
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, err
	}
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return 0, fmt.Errorf("PID file %s is empty", pidFile)
	}
	pid, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid PID in %s: %w", pidFile, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("invalid PID in %s: %d", pidFile, pid)
	}
	return pid, nil
}
