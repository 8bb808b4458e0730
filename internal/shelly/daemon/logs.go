package daemon

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tail "github.com/hpcloud/tail"
)

// RecentLines returns the last n non-empty lines of logFile
func RecentLines(logFile string, n int) ([]string, error) {
	//nolint:gosec // G304: log file path is constructed by application
	f, err := os.Open(logFile)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines, scanner.Err()
}

// FollowLogs copies new lines of logFile to w until ctx is cancelled. The
// file is re-opened when rotated and may not exist yet.
func FollowLogs(ctx context.Context, logFile string, w io.Writer) error {
	t, err := tail.TailFile(logFile, tail.Config{
		ReOpen:    true,
		Follow:    true,
		MustExist: false,
		Poll:      true,
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to tail log file: %w", err)
	}
	defer t.Cleanup()
	defer func() { _ = t.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return fmt.Errorf("log tail channel closed")
			}
			if line == nil {
				continue
			}
			if line.Err != nil {
				return fmt.Errorf("failed to read log file: %w", line.Err)
			}
			if strings.TrimSpace(line.Text) == "" {
				continue
			}
			if _, err := fmt.Fprintln(w, line.Text); err != nil {
				return err
			}
		}
	}
}
