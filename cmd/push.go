package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dimasma0305/shellysync/internal/log"
	"github.com/dimasma0305/shellysync/internal/shelly/syncer"
)

var pushAutorun bool

var pushCmd = &cobra.Command{
	Use:   "push <file>",
	Short: "Upload one script file to the device",
	Long: `Upload a single script file the same way the watcher does: create the
script if needed, stop it, upload the code and start it again.

Transport failures are retried; rejected requests are not.`,
	Example: `  # Push a script
  shellysync push scripts/blink.js

  # Push and always start it
  shellysync push scripts/blink.js --autorun`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: scriptFileCompletion,
	Run: func(cmd *cobra.Command, args []string) {
		conf := mustLoadConfig()
		if cmd.Flags().Changed("autorun") {
			conf.Autorun = pushAutorun
		}

		reconciler := syncer.New(mustDeviceClient(conf), conf)
		if !reconciler.Accepts(args[0]) {
			log.Fatal("Not a script file (expected ", conf.Extension, "): ", args[0])
		}

		if err := withRetry("push", func() error { return reconciler.SyncFile(args[0]) }); err != nil {
			log.Fatal("Failed to push script: ", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)

	pushCmd.Flags().BoolVar(&pushAutorun, "autorun", false, "Start the script even if it was already running")
}
