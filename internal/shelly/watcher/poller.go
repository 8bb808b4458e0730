// Package watcher detects modified files in the watched directory by polling
// their modification times.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dimasma0305/shellysync/internal/log"
	"github.com/dimasma0305/shellysync/internal/shelly/config"
	"github.com/dimasma0305/shellysync/internal/shelly/errors"
)

// Handler is invoked synchronously for every detected change
type Handler interface {
	HandleFileChange(path string) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(path string) error

// HandleFileChange calls f(path)
func (f HandlerFunc) HandleFileChange(path string) error { return f(path) }

// Accepter is implemented by handlers that ignore some files. Changes it
// rejects are still passed to the handler but counted as skipped.
type Accepter interface {
	Accepts(path string) bool
}

// Stats is a snapshot of the poller's activity
type Stats struct {
	Root        string    `json:"root"`
	Ticks       uint64    `json:"ticks"`
	Tracked     int       `json:"tracked"`
	Changes     uint64    `json:"changes"`
	SyncsOK     uint64    `json:"syncs_ok"`
	SyncsFailed uint64    `json:"syncs_failed"`
	Skipped     uint64    `json:"skipped"`
	LastChange  string    `json:"last_change,omitempty"`
	LastChanged time.Time `json:"last_changed,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}

// Poller remembers the last seen modtime of every file directly inside root.
// A file seen for the first time is recorded without an event; a strictly
// newer modtime produces exactly one event on that tick.
type Poller struct {
	root       string
	interval   time.Duration
	handler    Handler
	filter     *FilterMatcher
	pruneEvery int

	mu    sync.Mutex
	state map[string]time.Time
	stats Stats
}

// New creates a poller for conf.WatchPath that reports changes to handler
func New(conf config.Config, handler Handler) (*Poller, error) {
	conf = conf.Normalize()
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, errors.New("watcher handler cannot be nil")
	}

	return &Poller{
		root:       conf.WatchPath,
		interval:   conf.PollInterval,
		handler:    handler,
		filter:     NewFilterMatcher(conf.IgnorePatterns),
		pruneEvery: conf.PruneEvery,
		state:      make(map[string]time.Time),
		stats:      Stats{Root: conf.WatchPath},
	}, nil
}

// Tick performs one poll of the directory and returns the changed paths in
// the order their handlers ran. Each file is checked only after the handler
// for the previous change returned. Failures are logged, never returned.
func (p *Poller) Tick() []string {
	p.mu.Lock()
	p.stats.Ticks++
	tick := p.stats.Ticks
	p.mu.Unlock()

	// ReadDir returns entries sorted by name
	entries, err := os.ReadDir(p.root)
	if err != nil {
		p.fail(&errors.LocalIOError{Op: "read dir", Path: p.root, Err: err})
		return nil
	}

	seen := make(map[string]struct{}, len(entries))
	var changed []string

	for _, entry := range entries {
		path := filepath.Join(p.root, entry.Name())
		if p.filter.Ignored(path) {
			continue
		}

		// follow symlinks; directories are not descended into
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		seen[path] = struct{}{}

		if !p.observe(path, info.ModTime()) {
			continue
		}
		changed = append(changed, path)
		p.dispatch(path)
	}

	p.mu.Lock()
	if p.pruneEvery > 0 && tick%uint64(p.pruneEvery) == 0 {
		for path := range p.state {
			if _, ok := seen[path]; !ok {
				delete(p.state, path)
			}
		}
	}
	p.stats.Tracked = len(p.state)
	p.mu.Unlock()

	return changed
}

// observe records modTime and reports whether it is a change
func (p *Poller) observe(path string, modTime time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	last, known := p.state[path]
	if known && !modTime.After(last) {
		return false
	}
	p.state[path] = modTime
	p.stats.Tracked = len(p.state)
	return known
}

func (p *Poller) dispatch(path string) {
	skipped := false
	if a, ok := p.handler.(Accepter); ok && !a.Accepts(path) {
		skipped = true
		log.Debug("Change detected: %s (not a script, skipped)", path)
	} else {
		log.InfoH2("Change detected: %s", path)
	}

	err := p.handler.HandleFileChange(path)

	p.mu.Lock()
	p.stats.Changes++
	p.stats.LastChange = path
	p.stats.LastChanged = time.Now()
	switch {
	case err != nil:
		p.stats.SyncsFailed++
		p.stats.LastError = err.Error()
	case skipped:
		p.stats.Skipped++
	default:
		p.stats.SyncsOK++
	}
	p.mu.Unlock()

	if err != nil {
		log.Error("Failed to sync %s: %v", path, err)
	}
}

func (p *Poller) fail(err error) {
	p.mu.Lock()
	p.stats.LastError = err.Error()
	p.mu.Unlock()
	log.Error("%v", err)
}

// Run polls until ctx is cancelled
func (p *Poller) Run(ctx context.Context) error {
	log.Info("Watching %s for changes every %s", p.root, p.interval)

	for {
		p.Tick()
		select {
		case <-ctx.Done():
			log.Debug("Change watcher stopped")
			return nil
		case <-time.After(p.interval):
		}
	}
}

// Stats returns a snapshot safe to read from any goroutine
func (p *Poller) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
