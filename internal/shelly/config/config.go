// Package config holds the immutable runtime configuration shared by the
// synchronization unit and the log stream unit.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/dimasma0305/shellysync/internal/shelly/errors"
)

const (
	STATE_DIR   = ".shellysync"
	CONFIG_FILE = "conf.yaml"

	DefaultExtension    = ".js"
	DefaultLogPort      = 80
	DefaultPollInterval = 500 * time.Millisecond
)

// Credentials identify the operator on the device
type Credentials struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Config is built once at startup and passed by value to every component.
type Config struct {
	Host  string      `yaml:"host"`
	Creds Credentials `yaml:"creds"`

	WatchPath          string        `yaml:"path"`
	LogPort            int           `yaml:"logPort"`
	Autorun            bool          `yaml:"autorun"`
	Extension          string        `yaml:"extension"`
	PollInterval       time.Duration `yaml:"pollInterval"`
	InjectStopFunction bool          `yaml:"injectStopFunction"`
	ChunkSize          int           `yaml:"chunkSize"`
	PruneEvery         int           `yaml:"pruneEvery"`
	IgnorePatterns     []string      `yaml:"ignore,omitempty"`

	ResetBackoffOnConnect bool `yaml:"resetBackoffOnConnect"`

	StateDir       string `yaml:"stateDir"`
	JournalEnabled bool   `yaml:"journal"`
}

// Default returns a configuration with every optional field populated
func Default() Config {
	return Config{
		WatchPath:             "./",
		LogPort:               DefaultLogPort,
		Extension:             DefaultExtension,
		PollInterval:          DefaultPollInterval,
		InjectStopFunction:    true,
		ResetBackoffOnConnect: true,
		StateDir:              STATE_DIR,
		JournalEnabled:        true,
	}
}

// DefaultPath is the config file location relative to the working directory
func DefaultPath() string {
	return filepath.Join(STATE_DIR, CONFIG_FILE)
}

// Load reads a YAML config file on top of Default(). A missing file is not an
// error; the defaults are returned so flags can fill in the rest.
func Load(path string) (Config, error) {
	conf := Default()
	if path == "" {
		path = DefaultPath()
	}

	//nolint:gosec // G304: config path is supplied by the operator
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return conf, nil
		}
		return conf, fmt.Errorf("file open error: %w", err)
	}

	if err := yaml.Unmarshal(buf, &conf); err != nil {
		return conf, fmt.Errorf("error unmarshal yaml: %w", err)
	}
	return conf.withDefaults(), nil
}

// Save writes the config as YAML, creating the parent directory
func (c Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# shellysync configuration\n")
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("error marshal yaml: %w", err)
	}
	buf.Write(out)

	// credentials live in this file
	return os.WriteFile(path, buf.Bytes(), 0600)
}

func (c Config) withDefaults() Config {
	def := Default()
	if c.LogPort <= 0 {
		c.LogPort = def.LogPort
	}
	if c.Extension == "" {
		c.Extension = def.Extension
	}
	if !strings.HasPrefix(c.Extension, ".") {
		c.Extension = "." + c.Extension
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.StateDir == "" {
		c.StateDir = def.StateDir
	}
	if c.WatchPath == "" {
		c.WatchPath = def.WatchPath
	}
	return c
}

// Normalize fills zero values with defaults; call it after applying CLI overrides.
func (c Config) Normalize() Config {
	return c.withDefaults()
}

// Validate checks the settings needed by the change watcher
func (c Config) Validate() error {
	if strings.TrimSpace(c.WatchPath) == "" {
		return errors.ErrMissingWatchPath
	}
	if c.ChunkSize < 0 {
		return fmt.Errorf("chunk size must not be negative, got %d", c.ChunkSize)
	}
	if c.PruneEvery < 0 {
		return fmt.Errorf("prune interval must not be negative, got %d", c.PruneEvery)
	}
	return nil
}

// RequireDevice checks the settings needed to talk to the device RPC surface
func (c Config) RequireDevice() error {
	switch {
	case strings.TrimSpace(c.Host) == "":
		return errors.ErrMissingHost
	case c.Creds.Username == "":
		return errors.ErrMissingUsername
	case c.Creds.Password == "":
		return errors.ErrMissingPassword
	}
	return nil
}

// RequireLogStream checks the settings needed to open the log stream
func (c Config) RequireLogStream() error {
	if strings.TrimSpace(c.Host) == "" {
		return errors.ErrMissingHost
	}
	if c.LogPort <= 0 {
		return errors.ErrMissingPort
	}
	return nil
}

// PidFile is the daemon PID file location
func (c Config) PidFile() string { return filepath.Join(c.StateDir, "shellysync.pid") }

// LogFile is where the daemon's output is redirected
func (c Config) LogFile() string { return filepath.Join(c.StateDir, "shellysync.log") }

// SocketPath is the status socket location
func (c Config) SocketPath() string { return filepath.Join(c.StateDir, "shellysync.sock") }

// JournalPath is the SQLite journal location
func (c Config) JournalPath() string { return filepath.Join(c.StateDir, "journal.db") }
