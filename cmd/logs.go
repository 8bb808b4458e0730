package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dimasma0305/shellysync/internal/log"
	"github.com/dimasma0305/shellysync/internal/shelly/daemon"
)

var logsLines int

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Follow the daemon log",
	Long:  `Print the last lines of the daemon log file and follow new output until interrupted.`,
	Example: `  shellysync logs
  shellysync logs --lines 50`,
	Run: func(_ *cobra.Command, _ []string) {
		conf := mustLoadConfig()
		logFile := conf.LogFile()

		if lines, err := daemon.RecentLines(logFile, logsLines); err == nil {
			for _, line := range lines {
				_, _ = os.Stdout.WriteString(line + "\n")
			}
		} else if !os.IsNotExist(err) {
			log.Error("Failed to read %s: %v", logFile, err)
		}

		log.Info("Following %s (Ctrl+C to stop)", logFile)
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := daemon.FollowLogs(ctx, logFile, os.Stdout); err != nil {
			log.Fatal("Failed to follow logs: ", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 10, "Number of recent lines to show first")
}
