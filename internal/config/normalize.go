package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSamtools()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	var err error
	if c.Paths.WorkDir, err = ExpandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSamtools() {
	// INSTRAIN_SAMTOOLS lets cluster environments point at a module-managed
	// build without editing the config file.
	if value, ok := os.LookupEnv("INSTRAIN_SAMTOOLS"); ok && strings.TrimSpace(value) != "" {
		c.Samtools.Binary = value
	}
	c.Samtools.Binary = strings.TrimSpace(c.Samtools.Binary)
	if c.Samtools.Binary == "" {
		c.Samtools.Binary = defaultSamtoolsBinary
	}
	if c.Samtools.SortThreads <= 0 {
		c.Samtools.SortThreads = defaultSortThreads
	}
	if strings.TrimSpace(c.Samtools.SortMemory) == "" {
		c.Samtools.SortMemory = defaultSortMemory
	}
	if c.Samtools.MpileupDepth <= 0 {
		c.Samtools.MpileupDepth = defaultMpileupDepth
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
