package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dimasma0305/shellysync/internal/log"
	"github.com/dimasma0305/shellysync/internal/shelly/config"
	"github.com/dimasma0305/shellysync/internal/shelly/journal"
	"github.com/dimasma0305/shellysync/internal/shelly/socket"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sync attempts",
	Long: `Show the most recent sync attempts recorded in the journal. The running
daemon is asked first; without one the journal file is read directly.`,
	Example: `  shellysync history
  shellysync history --limit 50 --json`,
	Run: func(_ *cobra.Command, _ []string) {
		conf := mustLoadConfig()

		events, err := loadHistory(conf, historyLimit)
		if err != nil {
			log.Fatal("Failed to read history: ", err)
		}

		if historyJSON {
			out, err := json.MarshalIndent(events, "", "  ")
			if err != nil {
				log.Fatal("Failed to encode history: ", err)
			}
			fmt.Println(string(out))
			return
		}

		if len(events) == 0 {
			log.Info("No sync attempts recorded")
			return
		}
		for _, ev := range events {
			line := fmt.Sprintf("%s  %-6s %-7s %s (id %d, %dms)",
				ev.CreatedAt.Local().Format("2006-01-02 15:04:05"), ev.Status, ev.Action, ev.Script, ev.ScriptID, ev.Duration)
			if ev.Error != "" {
				log.ErrorH2("%s: %s", line, ev.Error)
				continue
			}
			log.InfoH2("%s", line)
		}
	},
}

func loadHistory(conf config.Config, limit int) ([]journal.SyncEvent, error) {
	report, err := socket.NewClient(conf.SocketPath()).History(limit)
	if err == nil {
		return report.Syncs, nil
	}
	log.Debug("Daemon not reachable, reading the journal directly: %v", err)

	if !conf.JournalEnabled {
		return nil, fmt.Errorf("the journal is disabled in the config")
	}
	// opening would create an empty database
	if _, err := os.Stat(conf.JournalPath()); os.IsNotExist(err) {
		log.Debug("No journal at %s yet", conf.JournalPath())
		return nil, nil
	}

	db := journal.New(conf.JournalPath(), true)
	if err := db.Init(); err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	return db.RecentSyncs(limit)
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output history in JSON format")
}
