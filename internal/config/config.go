package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Queues     QueuesConfig     `yaml:"queues"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Platforms  PlatformsConfig  `yaml:"platforms"`
	Analytics  AnalyticsConfig  `yaml:"analytics"`
	Cleanup    CleanupConfig    `yaml:"cleanup"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds Redis connection settings for distributed sync locks
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

// EncryptionConfig holds the credential encryption key.
// The key must decode to exactly 32 bytes (AES-256); Validate enforces this
// once at startup so a bad key is a boot failure, not a per-job failure.
type EncryptionConfig struct {
	Key string `yaml:"key"`
}

// Validate checks the encryption key shape.
func (c EncryptionConfig) Validate() error {
	if c.Key == "" {
		return fmt.Errorf("encryption key is not set (ENCRYPTION_KEY)")
	}
	if len(c.Key) != 64 {
		return fmt.Errorf("encryption key must be 64 hex characters (32 bytes), got %d", len(c.Key))
	}
	return nil
}

// QueuesConfig holds per-queue worker concurrency ceilings.
// Sync stays below the default so the slowest vendor's rate limits hold;
// maintenance is serialized so destructive cleanups never interleave.
type QueuesConfig struct {
	SyncWorkers         int `yaml:"sync_workers"`
	VerificationWorkers int `yaml:"verification_workers"`
	AnalyticsWorkers    int `yaml:"analytics_workers"`
	MaintenanceWorkers  int `yaml:"maintenance_workers"`
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	MaxAttempts         int `yaml:"max_attempts"`
	StaleJobMinutes     int `yaml:"stale_job_minutes"`
}

// PollInterval returns the queue poll interval as a duration
func (c QueuesConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// StaleJobAge returns how long a job may stay RUNNING before the cleanup
// sweep treats its worker as lost
func (c QueuesConfig) StaleJobAge() time.Duration {
	return time.Duration(c.StaleJobMinutes) * time.Minute
}

// SchedulerConfig holds recurring job intervals
type SchedulerConfig struct {
	Enabled                bool `yaml:"enabled"`
	SyncIntervalMinutes    int  `yaml:"sync_interval_minutes"`
	VerifyIntervalMinutes  int  `yaml:"verify_interval_minutes"`
	BenchmarkIntervalHours int  `yaml:"benchmark_interval_hours"`
	AnomalyIntervalHours   int  `yaml:"anomaly_interval_hours"`
	CleanupIntervalHours   int  `yaml:"cleanup_interval_hours"`
	TickIntervalSeconds    int  `yaml:"tick_interval_seconds"`
}

// TickInterval returns how often the scheduler checks for due schedules
func (c SchedulerConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSeconds) * time.Second
}

// PlatformsConfig holds vendor API defaults shared by all adapters
type PlatformsConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
	MaxRetries     int `yaml:"max_retries"`
	PageSize       int `yaml:"page_size"`
}

// Timeout returns the vendor HTTP timeout as a duration
func (c PlatformsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AnalyticsConfig holds benchmark/anomaly thresholds
type AnalyticsConfig struct {
	OpenRateFloorRatio   float64 `yaml:"open_rate_floor_ratio"`
	BounceRateCeilRatio  float64 `yaml:"bounce_rate_ceil_ratio"`
	MinCampaignsForStats int     `yaml:"min_campaigns_for_stats"`
}

// CleanupConfig holds maintenance retention windows
type CleanupConfig struct {
	AlertRetentionDays   int `yaml:"alert_retention_days"`
	JobRunRetentionDays  int `yaml:"job_run_retention_days"`
	SessionRetentionDays int `yaml:"session_retention_days"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Queues.SyncWorkers == 0 {
		cfg.Queues.SyncWorkers = 3
	}
	if cfg.Queues.VerificationWorkers == 0 {
		cfg.Queues.VerificationWorkers = 1
	}
	if cfg.Queues.AnalyticsWorkers == 0 {
		cfg.Queues.AnalyticsWorkers = 2
	}
	if cfg.Queues.MaintenanceWorkers == 0 {
		cfg.Queues.MaintenanceWorkers = 1
	}
	if cfg.Queues.PollIntervalSeconds == 0 {
		cfg.Queues.PollIntervalSeconds = 5
	}
	if cfg.Queues.MaxAttempts == 0 {
		cfg.Queues.MaxAttempts = 3
	}
	if cfg.Queues.StaleJobMinutes == 0 {
		cfg.Queues.StaleJobMinutes = 15
	}
	if cfg.Scheduler.SyncIntervalMinutes == 0 {
		cfg.Scheduler.SyncIntervalMinutes = 60
	}
	if cfg.Scheduler.VerifyIntervalMinutes == 0 {
		cfg.Scheduler.VerifyIntervalMinutes = 360
	}
	if cfg.Scheduler.BenchmarkIntervalHours == 0 {
		cfg.Scheduler.BenchmarkIntervalHours = 24
	}
	if cfg.Scheduler.AnomalyIntervalHours == 0 {
		cfg.Scheduler.AnomalyIntervalHours = 6
	}
	if cfg.Scheduler.CleanupIntervalHours == 0 {
		cfg.Scheduler.CleanupIntervalHours = 24
	}
	if cfg.Scheduler.TickIntervalSeconds == 0 {
		cfg.Scheduler.TickIntervalSeconds = 30
	}
	if cfg.Platforms.TimeoutSeconds == 0 {
		cfg.Platforms.TimeoutSeconds = 30
	}
	if cfg.Platforms.MaxRetries == 0 {
		cfg.Platforms.MaxRetries = 3
	}
	if cfg.Platforms.PageSize == 0 {
		cfg.Platforms.PageSize = 100
	}
	if cfg.Analytics.OpenRateFloorRatio == 0 {
		cfg.Analytics.OpenRateFloorRatio = 0.5
	}
	if cfg.Analytics.BounceRateCeilRatio == 0 {
		cfg.Analytics.BounceRateCeilRatio = 2.0
	}
	if cfg.Analytics.MinCampaignsForStats == 0 {
		cfg.Analytics.MinCampaignsForStats = 5
	}
	if cfg.Cleanup.AlertRetentionDays == 0 {
		cfg.Cleanup.AlertRetentionDays = 30
	}
	if cfg.Cleanup.JobRunRetentionDays == 0 {
		cfg.Cleanup.JobRunRetentionDays = 14
	}
	if cfg.Cleanup.SessionRetentionDays == 0 {
		cfg.Cleanup.SessionRetentionDays = 7
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		cfg.Redis.Password = pw
	}
	if key := os.Getenv("ENCRYPTION_KEY"); key != "" {
		cfg.Encryption.Key = key
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	if err := cfg.Encryption.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
