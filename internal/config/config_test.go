package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  host: "0.0.0.0"

database:
  url: "postgres://localhost:5432/platformhub?sslmode=disable"
  max_open_conns: 10

queues:
  sync_workers: 5
  verification_workers: 2
  poll_interval_seconds: 2

scheduler:
  enabled: true
  sync_interval_minutes: 30

platforms:
  timeout_seconds: 45
  page_size: 50
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "postgres://localhost:5432/platformhub?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Queues.SyncWorkers)
	assert.Equal(t, 2, cfg.Queues.VerificationWorkers)
	assert.Equal(t, 45, cfg.Platforms.TimeoutSeconds)
	assert.Equal(t, 50, cfg.Platforms.PageSize)
	assert.True(t, cfg.Scheduler.Enabled)
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("server:\n  port: 0\n"), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 3, cfg.Queues.SyncWorkers)
	assert.Equal(t, 1, cfg.Queues.VerificationWorkers)
	assert.Equal(t, 1, cfg.Queues.MaintenanceWorkers)
	assert.Equal(t, 3, cfg.Queues.MaxAttempts)
	assert.Equal(t, 15, cfg.Queues.StaleJobMinutes)
	assert.Equal(t, 60, cfg.Scheduler.SyncIntervalMinutes)
	assert.Equal(t, 30, cfg.Platforms.TimeoutSeconds)
	assert.Equal(t, 100, cfg.Platforms.PageSize)
	assert.Equal(t, 30, cfg.Cleanup.AlertRetentionDays)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestEncryptionValidate(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr string
	}{
		{"missing", "", "not set"},
		{"too short", "abcd", "64 hex characters"},
		{"valid", strings.Repeat("ab", 32), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := EncryptionConfig{Key: tt.key}.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  port: 8080\n"), 0644))

	t.Setenv("DATABASE_URL", "postgres://override:5432/db")
	t.Setenv("ENCRYPTION_KEY", strings.Repeat("0f", 32))
	t.Setenv("REDIS_ADDR", "redis.internal:6379")

	cfg, err := LoadFromEnv(configPath)
	require.NoError(t, err)

	assert.Equal(t, "postgres://override:5432/db", cfg.Database.URL)
	assert.Equal(t, strings.Repeat("0f", 32), cfg.Encryption.Key)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadFromEnvRejectsBadKey(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  port: 8080\n"), 0644))

	t.Setenv("ENCRYPTION_KEY", "short")

	_, err := LoadFromEnv(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "64 hex characters")
}
