package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dimasma0305/shellysync/internal/log"
	"github.com/dimasma0305/shellysync/internal/shelly/runner"
)

var (
	debugPath       string
	debugPort       int
	debugAutorun    bool
	debugForeground bool
	debugIgnore     []string
)

var debugCmd = &cobra.Command{
	Use:     "debug",
	Aliases: []string{"watch"},
	Short:   "Sync scripts on every save and stream the device log",
	Long: `Watch a directory and push every changed script to the device, while
streaming the device's live log.

A changed file is uploaded to the script of the same name (without the
extension), creating it when missing. The script is stopped before the upload
and started afterwards.

The engine runs as a daemon by default. Use --foreground to run in the current terminal.`,
	Example: `  # Start as daemon watching the current directory
  shellysync debug

  # Watch ./scripts in the foreground, log port 80, restart running scripts
  shellysync debug --path ./scripts --port 80 --autorun --foreground

  # Ignore backup files
  shellysync debug --ignore "*.bak"`,
	Run: func(cmd *cobra.Command, _ []string) {
		conf := mustLoadConfig()

		if cmd.Flags().Changed("path") {
			conf.WatchPath = debugPath
		}
		if cmd.Flags().Changed("port") {
			conf.LogPort = debugPort
		}
		if cmd.Flags().Changed("autorun") {
			conf.Autorun = debugAutorun
		}
		if len(debugIgnore) > 0 {
			conf.IgnorePatterns = append(conf.IgnorePatterns, debugIgnore...)
		}
		if err := conf.Validate(); err != nil {
			log.Fatal("Invalid configuration: ", err)
		}

		if err := runner.Start(conf, !debugForeground); err != nil {
			log.Fatal("Failed to start shellysync: ", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)

	debugCmd.Flags().StringVar(&debugPath, "path", "./", "Directory to watch for script changes")
	debugCmd.Flags().IntVar(&debugPort, "port", 80, "Device log WebSocket port")
	debugCmd.Flags().BoolVar(&debugAutorun, "autorun", false, "Start scripts after upload even if they were already running")
	debugCmd.Flags().BoolVarP(&debugForeground, "foreground", "f", false, "Run in foreground instead of daemon mode")
	debugCmd.Flags().StringSliceVar(&debugIgnore, "ignore", []string{}, "Additional file patterns to ignore")
}
