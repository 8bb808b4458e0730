//nolint:errcheck,gosec,revive // Test file with acceptable error handling patterns
package daemon

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// TestEnsureDirectoriesExist_MultiplePaths tests creating multiple directories
func TestEnsureDirectoriesExist_MultiplePaths(t *testing.T) {
	tmpDir := t.TempDir()
	file1 := filepath.Join(tmpDir, "dir1", "shellysync.pid")
	file2 := filepath.Join(tmpDir, "dir2", "sub", "shellysync.log")

	if err := EnsureDirectoriesExist("", file1, file2); err != nil {
		t.Fatalf("EnsureDirectoriesExist() failed: %v", err)
	}
	for _, file := range []string{file1, file2} {
		info, err := os.Stat(filepath.Dir(file))
		if err != nil || !info.IsDir() {
			t.Errorf("Directory for %s was not created: %v", file, err)
		}
	}
}

// TestEnsureDirectoriesExist_InvalidPath tests creating a directory under a file
func TestEnsureDirectoriesExist_InvalidPath(t *testing.T) {
	existingFile := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(existingFile, []byte("test"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := EnsureDirectoriesExist(filepath.Join(existingFile, "sub", "x.pid")); err == nil {
		t.Error("Expected error when parent is a file")
	}
}

func TestWriteReadPIDFile(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "state", "shellysync.pid")

	if err := WritePIDFile(pidFile, 12345); err != nil {
		t.Fatalf("WritePIDFile() failed: %v", err)
	}
	pid, err := ReadPIDFromFile(pidFile)
	if err != nil {
		t.Fatalf("ReadPIDFromFile() failed: %v", err)
	}
	if pid != 12345 {
		t.Errorf("ReadPIDFromFile() = %d, want 12345", pid)
	}

	info, _ := os.Stat(pidFile)
	if info.Mode().Perm() != 0600 {
		t.Errorf("PID file permissions = %o, want 0600", info.Mode().Perm())
	}

	if err := RemovePIDFile(pidFile); err != nil {
		t.Fatalf("RemovePIDFile() failed: %v", err)
	}
	if err := RemovePIDFile(pidFile); err != nil {
		t.Errorf("Removing a missing PID file should succeed, got %v", err)
	}
}

func TestReadPIDFromFile_Invalid(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"empty":    "",
		"spaces":   "  \n",
		"garbage":  "not-a-pid",
		"negative": "-4",
	} {
		t.Run(name, func(t *testing.T) {
			pidFile := filepath.Join(dir, name+".pid")
			os.WriteFile(pidFile, []byte(content), 0600)
			if _, err := ReadPIDFromFile(pidFile); err == nil {
				t.Errorf("Expected error for content %q", content)
			}
		})
	}

	if _, err := ReadPIDFromFile(filepath.Join(dir, "missing.pid")); !os.IsNotExist(err) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestGetStatus(t *testing.T) {
	dir := t.TempDir()

	t.Run("no pid file", func(t *testing.T) {
		st := GetStatus(filepath.Join(dir, "none.pid"))
		if st.Running || st.State != StateStopped {
			t.Errorf("Unexpected status: %+v", st)
		}
	})

	t.Run("own process", func(t *testing.T) {
		pidFile := filepath.Join(dir, "self.pid")
		WritePIDFile(pidFile, os.Getpid())
		want := Status{Running: true, State: StateRunning, PID: os.Getpid(), PIDFile: pidFile, Message: "Daemon is running"}
		if diff := cmp.Diff(want, GetStatus(pidFile)); diff != "" {
			t.Errorf("status mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("stale pid file", func(t *testing.T) {
		pidFile := filepath.Join(dir, "stale.pid")
		// PIDs above the default pid_max are never in use
		WritePIDFile(pidFile, 4194305)
		st := GetStatus(pidFile)
		if st.Running || st.State != StateDead {
			t.Errorf("Unexpected status: %+v", st)
		}
		if _, err := os.Stat(pidFile); !os.IsNotExist(err) {
			t.Error("Stale PID file should be removed")
		}
	})

	t.Run("corrupt pid file", func(t *testing.T) {
		pidFile := filepath.Join(dir, "corrupt.pid")
		os.WriteFile(pidFile, []byte("abc"), 0600)
		if st := GetStatus(pidFile); st.State != StateError {
			t.Errorf("Unexpected status: %+v", st)
		}
	})
}

func TestStop_NotRunning(t *testing.T) {
	err := Stop(filepath.Join(t.TempDir(), "none.pid"), time.Second)
	if err == nil || !strings.Contains(err.Error(), "not running") {
		t.Errorf("Expected not running error, got %v", err)
	}
}

func TestRecentLines(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "shellysync.log")
	var buf bytes.Buffer
	for i := 1; i <= 8; i++ {
		fmt.Fprintf(&buf, "line %d\n\n", i)
	}
	os.WriteFile(logFile, buf.Bytes(), 0600)

	lines, err := RecentLines(logFile, 3)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"line 6", "line 7", "line 8"}, lines); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}

	if _, err := RecentLines(filepath.Join(t.TempDir(), "missing.log"), 3); err == nil {
		t.Error("Expected error for missing log file")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestFollowLogs(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "shellysync.log")
	os.WriteFile(logFile, []byte("old line\n"), 0600)

	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- FollowLogs(ctx, logFile, out) }()

	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	// the follower starts at the end of the file, so keep appending until it is picked up
	deadline := time.Now().Add(10 * time.Second)
	for !strings.Contains(out.String(), "[+] blink.js has been uploaded") {
		if time.Now().After(deadline) {
			t.Fatalf("follower never printed the new line, got %q", out.String())
		}
		fmt.Fprintln(f, "[+] blink.js has been uploaded")
		time.Sleep(100 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("FollowLogs() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("FollowLogs did not return after cancel")
	}
	if strings.Contains(out.String(), "old line") {
		t.Error("Existing content should not be replayed")
	}
}
