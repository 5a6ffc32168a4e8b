package config

import (
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkers(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateWorkers() error {
	if c.Workers.Count > 64 {
		return fmt.Errorf("workers.count: %d exceeds maximum of 64", c.Workers.Count)
	}
	if c.Workers.PollTimeout > 60 {
		return fmt.Errorf("workers.poll_timeout: %d exceeds maximum of 60 seconds", c.Workers.PollTimeout)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
