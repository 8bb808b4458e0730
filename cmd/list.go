package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dimasma0305/shellysync/internal/log"
	"github.com/dimasma0305/shellysync/internal/shelly/device"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the scripts stored on the device",
	Example: `  shellysync list
  shellysync list --json`,
	Run: func(_ *cobra.Command, _ []string) {
		conf := mustLoadConfig()
		client := mustDeviceClient(conf)

		var scripts []device.Script
		err := withRetry("list", func() error {
			var err error
			scripts, err = client.ListScripts()
			return err
		})
		if err != nil {
			log.Fatal("Failed to list scripts: ", err)
		}

		if listJSON {
			out, err := json.MarshalIndent(scripts, "", "  ")
			if err != nil {
				log.Fatal("Failed to encode scripts: ", err)
			}
			fmt.Println(string(out))
			return
		}

		if len(scripts) == 0 {
			log.Info("No scripts on %s", conf.Host)
			return
		}
		log.Info("%d script(s) on %s", len(scripts), conf.Host)
		for _, s := range scripts {
			log.InfoH2("%s", s)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output scripts in JSON format")
}
