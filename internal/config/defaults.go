package config

const (
	defaultDataDir                = "~/.local/share/novastudio/data"
	defaultLogDir                 = "~/.local/share/novastudio/logs"
	defaultArtifactDir            = "~/.local/share/novastudio/artifacts"
	defaultAPIBind                = "127.0.0.1:8742"
	defaultWorkerCount            = 2
	defaultRetryBudget            = 3
	defaultRetryBackoffInitialMS  = 1000
	defaultRetryBackoffMaxMS      = 30000
	defaultCancelGracePeriodMS    = 5000
	defaultQueuePollIntervalMS    = 1000
	defaultHeartbeatIntervalMS    = 15000
	defaultHeartbeatTimeoutMS     = 120000
	defaultErrorRetryIntervalMS   = 5000
	defaultProgressSampleInterval = 250
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
			ArtifactDir: defaultArtifactDir,
			APIBind:     defaultAPIBind,
		},
		Scheduler: Scheduler{
			WorkerCount:            defaultWorkerCount,
			RetryBudget:            defaultRetryBudget,
			RetryBackoffInitialMS:  defaultRetryBackoffInitialMS,
			RetryBackoffMaxMS:      defaultRetryBackoffMaxMS,
			CancelGracePeriodMS:    defaultCancelGracePeriodMS,
			QueuePollIntervalMS:    defaultQueuePollIntervalMS,
			HeartbeatIntervalMS:    defaultHeartbeatIntervalMS,
			HeartbeatTimeoutMS:     defaultHeartbeatTimeoutMS,
			ErrorRetryIntervalMS:   defaultErrorRetryIntervalMS,
			ProgressSampleInterval: defaultProgressSampleInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			JobStarted:     true,
			JobCompleted:   true,
			JobFailed:      true,
			JobCancelled:   true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
