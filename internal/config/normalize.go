package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeServer()
	c.normalizeAuth()
	c.normalizeUpload()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.BaseURL = strings.TrimRight(strings.TrimSpace(c.Server.BaseURL), "/")
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = defaultBaseURL
	}
	if c.Server.TimeoutSeconds == 0 {
		c.Server.TimeoutSeconds = defaultTimeoutSeconds
	}
	c.Server.UserAgent = strings.TrimSpace(c.Server.UserAgent)
	if c.Server.UserAgent == "" {
		c.Server.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeAuth() {
	c.Auth.Username = strings.TrimSpace(c.Auth.Username)
	if c.Auth.Username == "" {
		if value, ok := os.LookupEnv(envUsername); ok {
			c.Auth.Username = strings.TrimSpace(value)
		}
	}
	c.Auth.Session = strings.TrimSpace(c.Auth.Session)
	if c.Auth.Session == "" {
		if value, ok := os.LookupEnv(envSession); ok {
			c.Auth.Session = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeUpload() {
	c.Upload.ProjectID = strings.TrimSpace(c.Upload.ProjectID)
	c.Upload.ExperimentID = strings.TrimSpace(c.Upload.ExperimentID)
	c.Upload.InstrumentID = strings.TrimSpace(c.Upload.InstrumentID)
	c.Upload.Description = strings.TrimSpace(c.Upload.Description)
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
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
