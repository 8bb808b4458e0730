package cmd

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dimasma0305/shellysync/internal/shelly/config"
	"github.com/dimasma0305/shellysync/internal/shelly/syncer"
)

// scriptFileCompletion suggests script files in the watched directory
func scriptFileCompletion(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	files, err := getLocalScripts(completionConfig())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return files, cobra.ShellCompDirectiveDefault
}

// scriptNameCompletion suggests device script names derived from local files
func scriptNameCompletion(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	files, err := getLocalScripts(completionConfig())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, syncer.ScriptName(f))
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// completionConfig never fails; completion must work without a config file
func completionConfig() config.Config {
	conf, err := loadConfig()
	if err != nil {
		return config.Default()
	}
	return conf
}

// getLocalScripts lists files in the watched directory carrying the script extension
func getLocalScripts(conf config.Config) ([]string, error) {
	conf = conf.Normalize()
	root := conf.WatchPath

	// Check if watch directory exists
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), conf.Extension) {
			continue
		}
		files = append(files, filepath.Join(root, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// completionCmd represents the completion command
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for shellysync.

To load completions:

Bash:

  $ source <(shellysync completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ shellysync completion bash > /etc/bash_completion.d/shellysync
  # macOS:
  $ shellysync completion bash > $(brew --prefix)/etc/bash_completion.d/shellysync

Zsh:

  # If shell completion is not already enabled in your environment,
  # you will need to enable it.  You can execute the following once:

  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ shellysync completion zsh > "${fpath[1]}/_shellysync"

  # You will need to start a new shell for this setup to take effect.

Fish:

  $ shellysync completion fish | source

  # To load completions for each session, execute once:
  $ shellysync completion fish > ~/.config/fish/completions/shellysync.fish

PowerShell:

  PS> shellysync completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> shellysync completion powershell > shellysync.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run: func(cmd *cobra.Command, args []string) {
		var err error
		switch args[0] {
		case "bash":
			err = cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			err = cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			err = cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			err = cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		}
		if err != nil {
			// Error is logged but not fatal for completion generation
			cmd.PrintErrf("Error generating completion: %v\n", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
