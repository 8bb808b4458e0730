package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dimasma0305/shellysync/internal/log"
	"github.com/dimasma0305/shellysync/internal/shelly/daemon"
)

var stopGrace time.Duration

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the shellysync daemon",
	Long:  `Stop the running daemon with SIGTERM, falling back to SIGKILL after the grace period.`,
	Example: `  shellysync stop
  shellysync stop --grace 5s`,
	Run: func(_ *cobra.Command, _ []string) {
		conf := mustLoadConfig()
		if err := daemon.Stop(conf.PidFile(), stopGrace); err != nil {
			log.Fatal("Failed to stop daemon: ", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)

	stopCmd.Flags().DurationVar(&stopGrace, "grace", 2*time.Second, "Time to wait before sending SIGKILL")
}
