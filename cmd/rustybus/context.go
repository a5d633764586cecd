package main

import (
	"strings"
	"sync"
	"time"

	"rustybus/internal/config"
	"rustybus/internal/dispatch"
)

type commandContext struct {
	configFlag  *string
	envFileFlag *string
	backendFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(flags *rootFlags) *commandContext {
	return &commandContext{
		configFlag:  &flags.config,
		envFileFlag: &flags.envFile,
		backendFlag: &flags.backend,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		// Variables already set in the process environment win over the file.
		if c.envFileFlag != nil {
			if _, err := config.LoadEnvFile(strings.TrimSpace(*c.envFileFlag)); err != nil {
				c.configErr = err
				return
			}
		}
		var path, backend string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		if c.backendFlag != nil {
			backend = *c.backendFlag
		}
		cfg, _, _, err := config.Load(path, config.WithBackend(backend))
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// gracePeriod prefers an explicit flag, then the config file. A config that
// fails to load falls back to the default here; the dispatcher reports the
// failure once arguments have been checked.
func (c *commandContext) gracePeriod(flag time.Duration, flagSet bool) time.Duration {
	if flagSet {
		return flag
	}
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		return cfg.GracePeriod()
	}
	return dispatch.DefaultGracePeriod
}
