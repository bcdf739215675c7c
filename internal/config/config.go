package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir     string `toml:"data_dir"`
	LogDir      string `toml:"log_dir"`
	ArtifactDir string `toml:"artifact_dir"`
	APIBind     string `toml:"api_bind"`
	APIToken    string `toml:"api_token"`
}

// Scheduler contains configuration for the job dispatcher.
type Scheduler struct {
	WorkerCount            int `toml:"worker_count"`
	RetryBudget            int `toml:"retry_budget"`
	RetryBackoffInitialMS  int `toml:"retry_backoff_initial_ms"`
	RetryBackoffMaxMS      int `toml:"retry_backoff_max_ms"`
	CancelGracePeriodMS    int `toml:"cancel_grace_period_ms"`
	MaxQueueDepth          int `toml:"max_queue_depth"`
	QueuePollIntervalMS    int `toml:"queue_poll_interval_ms"`
	HeartbeatIntervalMS    int `toml:"heartbeat_interval_ms"`
	HeartbeatTimeoutMS     int `toml:"heartbeat_timeout_ms"`
	ErrorRetryIntervalMS   int `toml:"error_retry_interval_ms"`
	ProgressSampleInterval int `toml:"progress_sample_interval_ms"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	JobStarted     bool   `toml:"job_started"`
	JobCompleted   bool   `toml:"job_completed"`
	JobFailed      bool   `toml:"job_failed"`
	JobCancelled   bool   `toml:"job_cancelled"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for NovaStudio.
//
// Configuration sections by subsystem:
//   - Paths: directories, API bind address, and API token
//   - Scheduler: worker pool sizing, retry policy, cancellation grace
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Scheduler     Scheduler     `toml:"scheduler"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/novastudio/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The bool reports whether a file
// was found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("novastudio.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.ArtifactDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the annotated sample configuration to the given path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// RetryBackoffInitial returns the configured initial retry backoff.
func (c *Config) RetryBackoffInitial() time.Duration {
	return time.Duration(c.Scheduler.RetryBackoffInitialMS) * time.Millisecond
}

// RetryBackoffMax returns the configured retry backoff cap.
func (c *Config) RetryBackoffMax() time.Duration {
	return time.Duration(c.Scheduler.RetryBackoffMaxMS) * time.Millisecond
}

// CancelGracePeriod returns how long a worker may run after cancellation before
// it is forcibly abandoned.
func (c *Config) CancelGracePeriod() time.Duration {
	return time.Duration(c.Scheduler.CancelGracePeriodMS) * time.Millisecond
}

// QueuePollInterval returns the idle dispatcher polling interval.
func (c *Config) QueuePollInterval() time.Duration {
	return time.Duration(c.Scheduler.QueuePollIntervalMS) * time.Millisecond
}

// HeartbeatInterval returns the in-flight job heartbeat cadence.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Scheduler.HeartbeatIntervalMS) * time.Millisecond
}

// HeartbeatTimeout returns the staleness cutoff for reclaiming abandoned jobs.
func (c *Config) HeartbeatTimeout() time.Duration {
	return time.Duration(c.Scheduler.HeartbeatTimeoutMS) * time.Millisecond
}

// ProgressInterval returns the minimum spacing between persisted progress
// updates for one job. Reports arriving faster are coalesced.
func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.Scheduler.ProgressSampleInterval) * time.Millisecond
}

// ErrorRetryInterval returns the pause after a dispatcher store error.
func (c *Config) ErrorRetryInterval() time.Duration {
	return time.Duration(c.Scheduler.ErrorRetryIntervalMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
