// Package daemon manages the background sync process through its PID file
// and log file.
package daemon

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/dimasma0305/shellysync/internal/log"
)

// Daemon states reported by GetStatus
const (
	StateRunning = "running"
	StateStopped = "stopped"
	StateDead    = "dead"
	StateError   = "error"
)

// Status describes the daemon process as seen from its PID file
type Status struct {
	Running bool   `json:"daemon_running"`
	State   string `json:"status"`
	PID     int    `json:"pid,omitempty"`
	PIDFile string `json:"pid_file"`
	Message string `json:"message,omitempty"`
}

// GetStatus probes the process recorded in pidFile. A stale PID file is removed.
func GetStatus(pidFile string) Status {
	status := Status{PIDFile: pidFile}

	pid, err := ReadPIDFromFile(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			status.State = StateStopped
			status.Message = "PID file not found"
		} else {
			status.State = StateError
			status.Message = err.Error()
		}
		return status
	}
	status.PID = pid

	if !processAlive(pid) {
		status.State = StateDead
		if removeErr := RemovePIDFile(pidFile); removeErr != nil {
			status.Message = fmt.Sprintf("Process not running, %v", removeErr)
		} else {
			status.Message = "Process not running (cleaned up stale PID file)"
		}
		return status
	}

	status.Running = true
	status.State = StateRunning
	status.Message = "Daemon is running"
	return status
}

// processAlive sends signal 0 to pid
func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// Stop sends SIGTERM to the daemon, then SIGKILL if it is still alive after grace
func Stop(pidFile string, grace time.Duration) error {
	pid, err := ReadPIDFromFile(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("daemon is not running (PID file not found)")
		}
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		_ = RemovePIDFile(pidFile)
		return fmt.Errorf("failed to send SIGTERM to process %d: %w", pid, err)
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) && processAlive(pid) {
		time.Sleep(100 * time.Millisecond)
	}

	if processAlive(pid) {
		log.Info("Process still running, sending SIGKILL...")
		if err := process.Kill(); err != nil {
			return fmt.Errorf("failed to kill process %d: %w", pid, err)
		}
	}

	if err := RemovePIDFile(pidFile); err != nil {
		return err
	}

	log.Info("shellysync daemon stopped")
	return nil
}
