package runner

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	godaemon "github.com/sevlyar/go-daemon"

	"github.com/dimasma0305/shellysync/internal/log"
	"github.com/dimasma0305/shellysync/internal/shelly/config"
	"github.com/dimasma0305/shellysync/internal/shelly/daemon"
	"github.com/dimasma0305/shellysync/internal/shelly/socket"
)

// Start runs the engine in the foreground, or forks it into a daemon
func Start(conf config.Config, daemonMode bool) error {
	conf = conf.Normalize()
	if daemonMode {
		return startAsDaemon(conf)
	}
	log.Info("Starting shellysync in foreground mode...")
	return runForeground(conf)
}

// runForeground runs until SIGINT or SIGTERM
func runForeground(conf config.Config) error {
	engine, err := New(conf)
	if err != nil {
		return err
	}

	if err := daemon.WritePIDFile(conf.PidFile(), os.Getpid()); err != nil {
		log.Warn("%v", err)
	}
	defer func() { _ = daemon.RemovePIDFile(conf.PidFile()) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return engine.Run(ctx)
}

// startAsDaemon forks the engine into the background
func startAsDaemon(conf config.Config) error {
	if !godaemon.WasReborn() {
		if st := daemon.GetStatus(conf.PidFile()); st.Running {
			return fmt.Errorf("shellysync is already running (PID %d)", st.PID)
		}
		// fail in the parent, where the operator can see it
		if _, err := New(conf); err != nil {
			return err
		}
	}

	if err := daemon.EnsureDirectoriesExist(conf.PidFile(), conf.LogFile()); err != nil {
		return err
	}

	daemonCtx := &godaemon.Context{
		PidFileName: conf.PidFile(),
		PidFilePerm: 0644,
		LogFileName: conf.LogFile(),
		LogFilePerm: 0640,
		WorkDir:     "./",
		Umask:       027,
	}

	child, err := daemonCtx.Reborn()
	if err != nil {
		return fmt.Errorf("failed to fork daemon: %w", err)
	}
	if child != nil {
		log.Info("shellysync daemon started successfully")
		log.Info("PID: %d (saved to %s)", child.Pid, conf.PidFile())
		log.Info("Logs: %s", conf.LogFile())
		if err := socket.NewClient(conf.SocketPath()).WaitForEngine(5 * time.Second); err != nil {
			log.Warn("Daemon has not answered yet: %v", err)
			log.InfoH2("Check 'shellysync logs' for startup errors")
		}
		return nil
	}
	defer func() { _ = daemonCtx.Release() }()

	log.Info("shellysync daemon started (PID: %d)", os.Getpid())
	engine, err := New(conf)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return engine.Run(ctx)
}
