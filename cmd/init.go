package cmd

import (
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/dimasma0305/shellysync/internal/log"
	"github.com/dimasma0305/shellysync/internal/shelly/config"
)

var initNoPrompt bool

// initAnswers holds the interactive prompt results
type initAnswers struct {
	Host     string `survey:"host"`
	Username string `survey:"username"`
	Password string `survey:"password"`
	Path     string `survey:"path"`
	Port     string `survey:"port"`
	Autorun  bool   `survey:"autorun"`
}

var initCmd = &cobra.Command{
	Use:     "init",
	Aliases: []string{"i"},
	Short:   "Create a shellysync config file",
	Long: `Create .shellysync/conf.yaml with the device address, credentials and the
directory to watch.

Values from the existing config and the global flags are offered as defaults.
Use --yes to write them without prompting.`,
	Example: `  # Initialize with prompts
  shellysync init

  # Initialize with flags
  shellysync init --host 192.168.1.20 -u admin -p secret --yes`,
	Run: func(_ *cobra.Command, _ []string) {
		conf := mustLoadConfig()

		if !initNoPrompt {
			answers, err := askInit(conf)
			if err != nil {
				log.Fatal("Init canceled: ", err)
			}
			conf = answers.apply(conf)
		}

		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		if err := conf.Save(path); err != nil {
			log.Fatal("Failed to save config: ", err)
		}
		log.Info("Config written to %s", path)
		if err := conf.RequireDevice(); err != nil {
			log.InfoH2("Still missing: %v", err)
		}
	},
}

func askInit(conf config.Config) (initAnswers, error) {
	prompts := []*survey.Question{
		{
			Name:   "host",
			Prompt: &survey.Input{Message: "Device host or IP:", Default: conf.Host},
		},
		{
			Name:   "username",
			Prompt: &survey.Input{Message: "Username:", Default: conf.Creds.Username},
		},
		{
			Name:   "password",
			Prompt: &survey.Password{Message: "Password (leave empty to keep the current one):"},
		},
		{
			Name:   "path",
			Prompt: &survey.Input{Message: "Directory to watch:", Default: conf.WatchPath},
		},
		{
			Name:   "port",
			Prompt: &survey.Input{Message: "Device log port:", Default: strconv.Itoa(conf.LogPort)},
			Validate: func(ans interface{}) error {
				_, err := strconv.Atoi(ans.(string))
				return err
			},
		},
		{
			Name:   "autorun",
			Prompt: &survey.Confirm{Message: "Start scripts after every upload?", Default: conf.Autorun},
		},
	}

	var answers initAnswers
	if err := survey.Ask(prompts, &answers); err != nil {
		return answers, err
	}
	return answers, nil
}

func (a initAnswers) apply(conf config.Config) config.Config {
	conf.Host = a.Host
	conf.Creds.Username = a.Username
	if a.Password != "" {
		conf.Creds.Password = a.Password
	}
	if a.Path != "" {
		conf.WatchPath = a.Path
	}
	if port, err := strconv.Atoi(a.Port); err == nil && port > 0 {
		conf.LogPort = port
	}
	conf.Autorun = a.Autorun
	return conf
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(&initNoPrompt, "yes", "y", false, "Write the config without prompting")
}
