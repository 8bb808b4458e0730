package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dimasma0305/shellysync/internal/log"
	"github.com/dimasma0305/shellysync/internal/shelly/config"
	"github.com/dimasma0305/shellysync/internal/shelly/daemon"
	"github.com/dimasma0305/shellysync/internal/shelly/logstream"
	"github.com/dimasma0305/shellysync/internal/shelly/socket"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon, watcher and log stream status",
	Long: `Display whether shellysync is running and, when it is, the live health of
the change watcher and the device log stream.`,
	Example: `  # Show status
  shellysync status

  # Show status in JSON format
  shellysync status --json`,
	Run: func(_ *cobra.Command, _ []string) {
		conf := mustLoadConfig()

		st := daemon.GetStatus(conf.PidFile())
		var report *socket.StatusReport
		if st.Running {
			var err error
			report, err = socket.NewClient(conf.SocketPath()).Status()
			if err != nil {
				log.Debug("Status socket unavailable: %v", err)
			}
		}

		if statusJSON {
			printStatusJSON(st, report)
			return
		}
		printStatus(conf, st, report)
	},
}

func printStatusJSON(st daemon.Status, report *socket.StatusReport) {
	out, err := json.MarshalIndent(struct {
		Daemon daemon.Status        `json:"daemon"`
		Engine *socket.StatusReport `json:"engine,omitempty"`
	}{st, report}, "", "  ")
	if err != nil {
		log.Fatal("Failed to marshal status to JSON: ", err)
	}
	fmt.Println(string(out))
}

func printStatus(conf config.Config, st daemon.Status, report *socket.StatusReport) {
	log.Info("shellysync status")

	switch st.State {
	case daemon.StateRunning:
		log.InfoH2("Status: RUNNING (PID %d)", st.PID)
	case daemon.StateDead:
		log.InfoH2("Status: STOPPED (stale PID file removed)")
	case daemon.StateStopped:
		log.InfoH2("Status: NOT RUNNING")
		log.InfoH3("Run 'shellysync debug' to start it")
	default:
		log.InfoH2("Status: ERROR")
		log.InfoH3("%s", st.Message)
	}
	log.InfoH3("PID file: %s", st.PIDFile)
	log.InfoH3("Log file: %s", conf.LogFile())

	if report == nil {
		return
	}

	w := report.Watcher
	log.Info("Change watcher")
	log.InfoH2("Watching %s (%d files, %d polls)", w.Root, w.Tracked, w.Ticks)
	log.InfoH2("Syncs: %d ok, %d failed, %d skipped", w.SyncsOK, w.SyncsFailed, w.Skipped)
	if w.LastChange != "" {
		log.InfoH3("Last change: %s at %s", w.LastChange, w.LastChanged.Format(time.RFC3339))
	}
	if w.LastError != "" {
		log.InfoH3("Last error: %s", w.LastError)
	}

	h := report.LogStream
	log.Info("Device log stream")
	switch h.Status {
	case logstream.StatusConnected:
		log.InfoH2("Connected to %s since %s", h.URL, h.ConnectedAt.Format(time.RFC3339))
	case logstream.StatusFailed:
		log.ErrorH2("Failed: %s", h.LastError)
	default:
		log.InfoH2("%s, next attempt in %s (%d failures)", h.Status, h.RetryDelay, h.Failures)
		if h.LastError != "" {
			log.InfoH3("Last error: %s", h.LastError)
		}
	}
	if h.Restarts > 0 {
		log.InfoH3("Restarted %d time(s)", h.Restarts)
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output status in JSON format")
}
