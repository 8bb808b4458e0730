// Package runner wires the synchronization unit and the log stream unit
// together and runs them in the foreground or as a daemon.
package runner

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dimasma0305/shellysync/internal/log"
	"github.com/dimasma0305/shellysync/internal/shelly/config"
	"github.com/dimasma0305/shellysync/internal/shelly/device"
	"github.com/dimasma0305/shellysync/internal/shelly/journal"
	"github.com/dimasma0305/shellysync/internal/shelly/logstream"
	"github.com/dimasma0305/shellysync/internal/shelly/socket"
	"github.com/dimasma0305/shellysync/internal/shelly/syncer"
	"github.com/dimasma0305/shellysync/internal/shelly/watcher"
)

const (
	shutdownTimeout = 10 * time.Second
	historyLimit    = 20
)

// Engine owns both units. The change watcher runs on the caller's goroutine;
// the log stream runs under its own supervisor and shares no state with it.
type Engine struct {
	conf       config.Config
	reconciler *syncer.Reconciler
	poller     *watcher.Poller
	logs       *logstream.Supervisor
	journal    *journal.DB
	socket     *socket.Server
	startedAt  time.Time
}

// New builds the engine. Missing device settings are fatal; missing log
// stream settings only disable the log stream once Run starts.
func New(conf config.Config) (*Engine, error) {
	logConf := conf
	conf = conf.Normalize()

	client, err := device.New(conf)
	if err != nil {
		return nil, err
	}

	db := journal.New(conf.JournalPath(), conf.JournalEnabled)
	reconciler := syncer.New(client, conf)
	reconciler.SetRecorder(db)

	poller, err := watcher.New(conf, reconciler)
	if err != nil {
		return nil, err
	}

	return &Engine{
		conf:       conf,
		reconciler: reconciler,
		poller:     poller,
		logs:       logstream.NewSupervisor(logConf, logstream.LogSink{Recorder: db}),
		journal:    db,
	}, nil
}

// Run blocks until ctx is cancelled, then shuts both units down
func (e *Engine) Run(ctx context.Context) error {
	e.startedAt = time.Now()

	log.Info("Path : %s", e.conf.WatchPath)
	log.Info("WS Port : %d", e.conf.LogPort)
	log.Info("Autorun : %v", e.conf.Autorun)

	if err := e.journal.Init(); err != nil {
		log.Warn("Journal unavailable, continuing without it: %v", err)
	}

	e.socket = socket.NewServer(e.conf.SocketPath(), socket.NewDefaultCommandHandler(e))
	socketDone := make(chan struct{})
	if err := e.socket.Init(); err != nil {
		log.Warn("Status socket unavailable: %v", err)
		close(socketDone)
	} else {
		go func() {
			defer close(socketDone)
			e.socket.Run(ctx)
		}()
	}

	e.logs.Start(ctx)

	err := e.poller.Run(ctx)
	e.shutdown(socketDone)
	return err
}

func (e *Engine) shutdown(socketDone <-chan struct{}) {
	log.Info("Stopping shellysync...")

	select {
	case <-e.logs.Done():
	case <-time.After(shutdownTimeout):
		log.Error("Timeout waiting for the log stream to stop")
	}

	if err := e.socket.Close(); err != nil {
		log.Error("Failed to close status socket: %v", err)
	}
	<-socketDone

	if err := e.journal.Close(); err != nil {
		log.Error("Failed to close journal: %v", err)
	}
	log.Info("shellysync stopped")
}

// HandleStatusCommand reports the health of both units
func (e *Engine) HandleStatusCommand(socket.Command) socket.Response {
	return socket.OK("Engine status retrieved successfully", socket.StatusReport{
		PID:       os.Getpid(),
		StartedAt: e.startedAt,
		Host:      e.conf.Host,
		Autorun:   e.conf.Autorun,
		Journal:   e.journal.GetDB() != nil,
		Watcher:   e.poller.Stats(),
		LogStream: e.logs.State(),
	})
}

// HandleHistoryCommand returns recent sync attempts from the journal
func (e *Engine) HandleHistoryCommand(cmd socket.Command) socket.Response {
	if e.journal.GetDB() == nil {
		return socket.Fail("Journal is disabled")
	}

	syncs, err := e.journal.RecentSyncs(cmd.IntArg("limit", historyLimit))
	if err != nil {
		return socket.Fail(fmt.Sprintf("Failed to read journal: %v", err))
	}
	return socket.OK(fmt.Sprintf("Retrieved %d sync events", len(syncs)), socket.HistoryReport{Syncs: syncs})
}
