package config

import (
	"fmt"
	"regexp"
)

var sortMemoryPattern = regexp.MustCompile(`^[0-9]+[KMG]?$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSamtools(); err != nil {
		return err
	}
	if err := c.validateDefaults(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateSamtools() error {
	if c.Samtools.SortThreads < 1 {
		return fmt.Errorf("samtools.sort_threads must be at least 1, got %d", c.Samtools.SortThreads)
	}
	if !sortMemoryPattern.MatchString(c.Samtools.SortMemory) {
		return fmt.Errorf("samtools.sort_memory must look like 768M or 2G, got %q", c.Samtools.SortMemory)
	}
	if c.Samtools.CommandTimeout < 0 {
		return fmt.Errorf("samtools.command_timeout must not be negative, got %d", c.Samtools.CommandTimeout)
	}
	return nil
}

func (c *Config) validateDefaults() error {
	if c.Defaults.Processes < 1 {
		return fmt.Errorf("defaults.processes must be at least 1, got %d", c.Defaults.Processes)
	}
	if c.Defaults.WindowLength < 100 {
		return fmt.Errorf("defaults.window_length must be at least 100, got %d", c.Defaults.WindowLength)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
