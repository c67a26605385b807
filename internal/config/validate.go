package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. An empty TMDb token is
// permitted; it disables catalog lookups rather than failing startup.
func (c *Config) Validate() error {
	if err := c.validateLibrary(); err != nil {
		return err
	}
	if err := c.validateDrives(); err != nil {
		return err
	}
	if err := c.validateTMDB(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLibrary() error {
	if c.Paths.MoviesDir == "" {
		return errors.New("paths.movies_dir must be set")
	}
	if c.Paths.TVDir == "" {
		return errors.New("paths.tv_dir must be set")
	}
	return nil
}

func (c *Config) validateDrives() error {
	if len(c.Drives.IDs) == 0 {
		return errors.New("drives.ids must list at least one drive")
	}
	if c.Drives.PollInterval <= 0 {
		return errors.New("drives.poll_interval must be positive")
	}
	return nil
}

func (c *Config) validateTMDB() error {
	if c.TMDB.AutoApproveThreshold < 0 || c.TMDB.AutoApproveThreshold > 1 {
		return errors.New("tmdb.auto_approve_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval": c.Workflow.QueuePollInterval,
		"workflow.probe_timeout":       c.Workflow.ProbeTimeout,
		"workflow.scan_timeout":        c.Workflow.ScanTimeout,
		"pushover.request_timeout":     c.Pushover.RequestTimeout,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
