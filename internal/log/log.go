//nolint:revive // Package name kept as "log" for stable internal imports.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

var (
	debugMode = false

	mu     sync.Mutex
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// SetDebugMode enables or disables debug logging
func SetDebugMode(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	debugMode = enabled
}

// IsDebug reports whether debug logging is enabled
func IsDebug() bool {
	mu.Lock()
	defer mu.Unlock()
	return debugMode
}

// SetOutput redirects informational and error output. A nil writer keeps the current one.
func SetOutput(out, errOut io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if out != nil {
		stdout = out
	}
	if errOut != nil {
		stderr = errOut
	}
}

func emit(toErr bool, prefix, format string, elem ...any) {
	mu.Lock()
	defer mu.Unlock()
	w := stdout
	if toErr {
		w = stderr
	}
	fmt.Fprintln(w, prefix+fmt.Sprintf(format, elem...))
}

func debugf(prefix, format string, elem ...any) {
	if !IsDebug() {
		return
	}
	emit(false, color.CyanString(prefix), format, elem...)
}

// Debug logs debug messages when debug mode is enabled
func Debug(format string, elem ...any) {
	debugf("[DEBUG] ", format, elem...)
}

// DebugH2 logs indented debug messages when debug mode is enabled
func DebugH2(format string, elem ...any) {
	debugf("  [DEBUG] ", format, elem...)
}

// DebugH3 logs more indented debug messages when debug mode is enabled
func DebugH3(format string, elem ...any) {
	debugf("    [DEBUG] ", format, elem...)
}

// Fatal logs an error message and exits the program
func Fatal(args ...interface{}) {
	lines := strings.Split(strings.TrimSpace(fatalMessage(args...)), "\n")
	for _, line := range lines {
		emit(true, color.RedString("[x] "), "%s", line)
	}
	os.Exit(1)
}

// fatalMessage treats the first argument as a format only when it contains a verb
func fatalMessage(args ...interface{}) string {
	switch len(args) {
	case 0:
		return "fatal error occurred"
	case 1:
		switch v := args[0].(type) {
		case error:
			return v.Error()
		case string:
			return v
		default:
			return fmt.Sprintf("%v", v)
		}
	}
	if format, ok := args[0].(string); ok && strings.Contains(format, "%") {
		return fmt.Sprintf(format, args[1:]...)
	}
	return fmt.Sprint(args...)
}

// Error logs an error message to stderr
func Error(format string, elem ...any) {
	emit(true, color.RedString("[x] "), format, elem...)
}

// ErrorH2 logs an indented error message to stderr
func ErrorH2(format string, elem ...any) {
	emit(true, color.RedString("  [x] "), format, elem...)
}

// Warn logs a warning to stderr
func Warn(format string, elem ...any) {
	emit(true, color.MagentaString("[!] "), format, elem...)
}

// Info logs an informational message
func Info(format string, elem ...any) {
	emit(false, color.BlueString("[x] "), format, elem...)
}

// InfoH2 logs an indented informational message
func InfoH2(format string, elem ...any) {
	emit(false, color.GreenString("  [x] "), format, elem...)
}

// InfoH3 logs a double-indented informational message
func InfoH3(format string, elem ...any) {
	emit(false, color.YellowString("    [x] "), format, elem...)
}

// Device logs a line received from the device's own log stream
func Device(info bool, format string, elem ...any) {
	if info {
		emit(false, color.GreenString("[device] "), format, elem...)
		return
	}
	debugf("[device] ", format, elem...)
}
