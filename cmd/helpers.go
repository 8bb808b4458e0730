package cmd

import (
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/dimasma0305/shellysync/internal/log"
	"github.com/dimasma0305/shellysync/internal/shelly/config"
	"github.com/dimasma0305/shellysync/internal/shelly/device"
	"github.com/dimasma0305/shellysync/internal/shelly/errors"
)

const (
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// loadConfig reads the config file and applies the global flag overrides
func loadConfig() (config.Config, error) {
	conf, err := config.Load(configPath)
	if err != nil {
		return conf, err
	}
	return applyOverrides(conf), nil
}

func applyOverrides(conf config.Config) config.Config {
	if hostFlag != "" {
		conf.Host = hostFlag
	}
	if usernameFlag != "" {
		conf.Creds.Username = usernameFlag
	}
	if passwordFlag != "" {
		conf.Creds.Password = passwordFlag
	}
	return conf.Normalize()
}

// mustLoadConfig loads the config or exits
func mustLoadConfig() config.Config {
	conf, err := loadConfig()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}
	return conf
}

// mustDeviceClient builds a device client or exits with the missing setting
func mustDeviceClient(conf config.Config) *device.Client {
	client, err := device.New(conf)
	if err != nil {
		log.Error("%v", err)
		log.ErrorH2("Set it in %s, pass it as a flag, or run 'shellysync init'", config.DefaultPath())
		log.Fatal("Cannot reach the device without it")
	}
	return client
}

// withRetry retries fn on transport failures only
func withRetry(what string, fn func() error) error {
	return retry.Do(fn,
		retry.Attempts(maxRetries),
		retry.Delay(initialBackoff),
		retry.MaxDelay(maxBackoff),
		retry.LastErrorOnly(true),
		retry.RetryIf(errors.IsRetryable),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("%s failed (attempt %d/%d): %v", what, n+1, maxRetries, err)
		}),
	)
}
