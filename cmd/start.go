package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dimasma0305/shellysync/internal/log"
	"github.com/dimasma0305/shellysync/internal/shelly/errors"
	"github.com/dimasma0305/shellysync/internal/shelly/syncer"
)

var startCmd = &cobra.Command{
	Use:               "start <name>",
	Short:             "Start a script on the device by name",
	Long:              `Start the device script with the given name, whether or not it is reported as running.`,
	Example:           `  shellysync start blink`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: scriptNameCompletion,
	Run: func(_ *cobra.Command, args []string) {
		conf := mustLoadConfig()
		client := mustDeviceClient(conf).WithAutorun(true)

		reconciler := syncer.New(client, conf)
		err := withRetry("start", func() error { return reconciler.StartByName(args[0]) })
		if errors.Is(err, errors.ErrScriptNotFound) {
			log.Fatal("No script named ", args[0], " on the device")
		}
		if err != nil {
			log.Fatal("Failed to start script: ", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
