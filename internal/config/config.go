// Package config loads and validates the application configuration from
// environment variables and optional config files.
package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Lock     LockConfig     `mapstructure:"lock"     validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker"   validate:"required"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// LockConfig tunes the per-user availability lock manager and its sweeps.
type LockConfig struct {
	// WaitAttempts is the number of acquisition polls before WaitAcquire
	// gives up and surfaces a timeout.
	WaitAttempts int `mapstructure:"wait_attempts" validate:"required,gte=1,lte=60"`

	// WaitIntervalSeconds is the pause between acquisition polls.
	WaitIntervalSeconds int `mapstructure:"wait_interval_seconds" validate:"required,gte=1,lte=60"`

	// StaleAfterMinutes is the age past which a held lock is considered
	// abandoned and reclaimed by the stale sweep.
	StaleAfterMinutes int `mapstructure:"stale_after_minutes" validate:"required,gte=1"`

	// RetainForDays is the retention window for the last-resort old-lock
	// sweep.
	RetainForDays int `mapstructure:"retain_for_days" validate:"required,gte=1"`

	// SweepIntervalMinutes is how often the in-process sweeper runs the
	// stale sweep.
	SweepIntervalMinutes int `mapstructure:"sweep_interval_minutes" validate:"required,gte=1"`
}

// WorkerConfig tunes the reconciliation worker pool.
type WorkerConfig struct {
	// Count determines how many concurrent workers consume rebuild jobs.
	Count int `mapstructure:"count" validate:"required,gte=1,lte=64"`

	// QueueSize is the buffer size of the in-memory job queue.
	QueueSize int `mapstructure:"queue_size" validate:"required,gte=1"`

	// MaxAttempts is the per-job retry budget for transient failures.
	MaxAttempts int `mapstructure:"max_attempts" validate:"required,gte=1,lte=10"`

	// RetryBackoffSeconds is the fixed pause between job attempts.
	RetryBackoffSeconds int `mapstructure:"retry_backoff_seconds" validate:"required,gte=1,lte=300"`
}
