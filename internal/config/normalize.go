package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScheduler()
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ArtifactDir) == "" {
		c.Paths.ArtifactDir = defaultArtifactDir
	}
	if c.Paths.ArtifactDir, err = expandPath(c.Paths.ArtifactDir); err != nil {
		return fmt.Errorf("paths.artifact_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeScheduler() {
	if c.Scheduler.WorkerCount <= 0 {
		c.Scheduler.WorkerCount = defaultWorkerCount
	}
	if c.Scheduler.RetryBudget < 0 {
		c.Scheduler.RetryBudget = defaultRetryBudget
	}
	if c.Scheduler.RetryBackoffInitialMS <= 0 {
		c.Scheduler.RetryBackoffInitialMS = defaultRetryBackoffInitialMS
	}
	if c.Scheduler.RetryBackoffMaxMS <= 0 {
		c.Scheduler.RetryBackoffMaxMS = defaultRetryBackoffMaxMS
	}
	if c.Scheduler.CancelGracePeriodMS <= 0 {
		c.Scheduler.CancelGracePeriodMS = defaultCancelGracePeriodMS
	}
	if c.Scheduler.MaxQueueDepth < 0 {
		c.Scheduler.MaxQueueDepth = 0
	}
	if c.Scheduler.QueuePollIntervalMS <= 0 {
		c.Scheduler.QueuePollIntervalMS = defaultQueuePollIntervalMS
	}
	if c.Scheduler.HeartbeatIntervalMS <= 0 {
		c.Scheduler.HeartbeatIntervalMS = defaultHeartbeatIntervalMS
	}
	if c.Scheduler.HeartbeatTimeoutMS <= 0 {
		c.Scheduler.HeartbeatTimeoutMS = defaultHeartbeatTimeoutMS
	}
	if c.Scheduler.ErrorRetryIntervalMS <= 0 {
		c.Scheduler.ErrorRetryIntervalMS = defaultErrorRetryIntervalMS
	}
	if c.Scheduler.ProgressSampleInterval <= 0 {
		c.Scheduler.ProgressSampleInterval = defaultProgressSampleInterval
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

// Validate checks configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if c.Scheduler.RetryBackoffInitialMS > c.Scheduler.RetryBackoffMaxMS {
		return fmt.Errorf("scheduler.retry_backoff_initial_ms %d exceeds cap %d",
			c.Scheduler.RetryBackoffInitialMS, c.Scheduler.RetryBackoffMaxMS)
	}
	if c.Scheduler.HeartbeatIntervalMS >= c.Scheduler.HeartbeatTimeoutMS {
		return fmt.Errorf("scheduler.heartbeat_interval_ms %d must be below timeout %d",
			c.Scheduler.HeartbeatIntervalMS, c.Scheduler.HeartbeatTimeoutMS)
	}
	return nil
}
