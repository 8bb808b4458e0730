/*
Copyright © 2023 dimas maulana dimasmaulana0305@gmail.com
*/

// Package cmd provides command-line interface commands for shellysync
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dimasma0305/shellysync/internal/log"
)

var (
	configPath   string
	hostFlag     string
	usernameFlag string
	passwordFlag string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shellysync",
	Short: "Keep scripts on a Shelly device in sync with a local directory",
	Long: `shellysync - develop Shelly device scripts from your own editor

Watches a local directory of script files and pushes every saved change to
the device, while streaming the device's live log to your terminal.

Features:
  • Create, stop, upload and restart scripts on every save
  • Live device log with automatic reconnection
  • Background daemon with status, logs and history
  • One-shot push, start and list commands`,
	Example: `  # Create a config file interactively
  shellysync init

  # Watch ./scripts and stream the device log in the foreground
  shellysync debug --path ./scripts --foreground

  # Push a single file
  shellysync push scripts/blink.js

  # Show daemon and log stream health
  shellysync status`,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		// Enable debug mode if flag is set
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			log.SetDebugMode(true)
			log.Debug("Debug mode enabled")
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: .shellysync/conf.yaml)")
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "", "Device host or IP address")
	rootCmd.PersistentFlags().StringVarP(&usernameFlag, "username", "u", "", "Device username")
	rootCmd.PersistentFlags().StringVarP(&passwordFlag, "password", "p", "", "Device password")
}
