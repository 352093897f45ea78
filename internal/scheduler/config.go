package scheduler

import (
	"strings"
	"time"

	appconfig "github.com/showyourproject/backend/internal/config"
)

// Config controls sweep intervals and thresholds.
type Config struct {
	RunInterval time.Duration
	JobTimeout  time.Duration
	// StalePendingAfter is how long a social post may sit pending before
	// the sweep finalizes it as failed.
	StalePendingAfter time.Duration
	LockTTL           time.Duration
	// EnabledJobs empty means all jobs run (monolith mode).
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:       time.Minute,
		JobTimeout:        30 * time.Second,
		StalePendingAfter: 10 * time.Minute,
		LockTTL:           2 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.StalePendingAfter <= 0 {
		c.StalePendingAfter = defaults.StalePendingAfter
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}

func (c Config) isJobEnabled(jobName string) bool {
	if len(c.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range c.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

func ProvideConfig(cfg appconfig.Config) Config {
	return Config{
		RunInterval: cfg.SchedulerInterval,
	}.withDefaults()
}
