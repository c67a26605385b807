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
	c.normalizeDrives()
	c.normalizeTMDB()
	c.normalizePushover()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkspaceDir) == "" {
		c.Paths.WorkspaceDir = defaultWorkspaceDir
	}
	if c.Paths.WorkspaceDir, err = expandPath(c.Paths.WorkspaceDir); err != nil {
		return fmt.Errorf("paths.workspace_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.MoviesDir) != "" {
		if c.Paths.MoviesDir, err = expandPath(c.Paths.MoviesDir); err != nil {
			return fmt.Errorf("paths.movies_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Paths.TVDir) != "" {
		if c.Paths.TVDir, err = expandPath(c.Paths.TVDir); err != nil {
			return fmt.Errorf("paths.tv_dir: %w", err)
		}
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeDrives() {
	ids := make([]string, 0, len(c.Drives.IDs))
	seen := make(map[string]struct{}, len(c.Drives.IDs))
	for _, id := range c.Drives.IDs {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		ids = append(ids, trimmed)
	}
	if len(ids) == 0 {
		ids = []string{"0"}
	}
	c.Drives.IDs = ids
	if c.Drives.PollInterval <= 0 {
		c.Drives.PollInterval = defaultDrivePollInterval
	}
}

func (c *Config) normalizeTMDB() {
	c.TMDB.APIToken = strings.TrimSpace(c.TMDB.APIToken)
	if c.TMDB.APIToken == "" {
		if value, ok := os.LookupEnv("TMDB_API_TOKEN"); ok {
			c.TMDB.APIToken = strings.TrimSpace(value)
		}
	}
	c.TMDB.BaseURL = strings.TrimSpace(c.TMDB.BaseURL)
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	if c.TMDB.Language == "" {
		c.TMDB.Language = defaultTMDBLanguage
	}
	if c.TMDB.AutoApproveThreshold == 0 {
		c.TMDB.AutoApproveThreshold = defaultAutoApproveThreshold
	}
}

func (c *Config) normalizePushover() {
	c.Pushover.UserKey = strings.TrimSpace(c.Pushover.UserKey)
	if c.Pushover.UserKey == "" {
		if value, ok := os.LookupEnv("PUSHOVER_USER_KEY"); ok {
			c.Pushover.UserKey = strings.TrimSpace(value)
		}
	}
	c.Pushover.APIToken = strings.TrimSpace(c.Pushover.APIToken)
	if c.Pushover.APIToken == "" {
		if value, ok := os.LookupEnv("PUSHOVER_API_TOKEN"); ok {
			c.Pushover.APIToken = strings.TrimSpace(value)
		}
	}
	if c.Pushover.RequestTimeout <= 0 {
		c.Pushover.RequestTimeout = defaultPushoverTimeout
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ProbeTimeout <= 0 {
		c.Workflow.ProbeTimeout = defaultProbeTimeout
	}
	if c.Workflow.ScanTimeout <= 0 {
		c.Workflow.ScanTimeout = defaultScanTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
