package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"APP_ENV", "LOG_LEVEL", "SERVER_PORT", "MAX_UPLOAD_SIZE_MB",
	"STORE_BACKEND", "DATABASE_DSN",
	"REDIS_URL", "LOCK_BACKEND", "LOCK_TTL",
	"STORAGE_BACKEND", "STORAGE_ROOT", "STATIC_URL_PREFIX", "RESIZE_TIMEOUT",
	"S3_BUCKET", "S3_REGION", "S3_ENDPOINT", "S3_PREFIX", "S3_HTTP_TIMEOUT",
}

// clearEnv unsets every configuration key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

// TestLoad_Defaults verifies that default values are used when env vars are missing.
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(".")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 10, cfg.MaxUploadSizeMB)
	assert.Equal(t, StoreBackendSQL, cfg.Database.Backend)
	assert.Equal(t, "banners.db", cfg.Database.DSN)
	assert.Equal(t, LockBackendMemory, cfg.Redis.LockBackend)
	assert.Equal(t, 30*time.Second, cfg.Redis.LockTTL)
	assert.Equal(t, StorageBackendLocal, cfg.Storage.Backend)
	assert.Equal(t, "./static", cfg.Storage.Root)
	assert.Equal(t, "/static", cfg.Storage.StaticURLPrefix)
	assert.Equal(t, 10*time.Second, cfg.Storage.ResizeTimeout)
	assert.Equal(t, "us-east-1", cfg.Storage.S3.Region)
	assert.False(t, cfg.NeedsRedis())
}

// TestLoad_EnvVars verifies that environment variables override defaults.
func TestLoad_EnvVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("LOCK_BACKEND", "redis")
	t.Setenv("LOCK_TTL", "5s")
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "banners")
	t.Setenv("S3_ENDPOINT", "http://minio:9000")
	t.Setenv("RESIZE_TIMEOUT", "2s")

	cfg, err := Load(".")
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, StoreBackendRedis, cfg.Database.Backend)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 5*time.Second, cfg.Redis.LockTTL)
	assert.Equal(t, "banners", cfg.Storage.S3.Bucket)
	assert.Equal(t, "http://minio:9000", cfg.Storage.S3.Endpoint)
	assert.Equal(t, 2*time.Second, cfg.Storage.ResizeTimeout)
	assert.True(t, cfg.NeedsRedis())
}

// TestLoad_File verifies that values are loaded from a .env file.
func TestLoad_File(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	content := []byte(`
APP_ENV=staging
LOG_LEVEL=warn
SERVER_PORT=7070
DATABASE_DSN=postgres://banner:secret@db:5432/banners
STORAGE_ROOT=/srv/static
`)
	require.NoError(t, os.WriteFile(dir+"/.env", content, 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 7070, cfg.ServerPort)
	assert.Equal(t, "postgres://banner:secret@db:5432/banners", cfg.Database.DSN)
	assert.Equal(t, "/srv/static", cfg.Storage.Root)
}

// TestLoad_ValidationFailure verifies that backend dependencies are enforced.
func TestLoad_ValidationFailure(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		message string
	}{
		{
			name:    "Redis store without URL",
			env:     map[string]string{"STORE_BACKEND": "redis"},
			message: "missing required configuration: REDIS_URL",
		},
		{
			name:    "Redis locks without URL",
			env:     map[string]string{"LOCK_BACKEND": "redis"},
			message: "missing required configuration: REDIS_URL",
		},
		{
			name:    "S3 without bucket",
			env:     map[string]string{"STORAGE_BACKEND": "s3"},
			message: "missing required configuration: S3_BUCKET",
		},
		{
			name:    "Unknown store",
			env:     map[string]string{"STORE_BACKEND": "mongo"},
			message: "invalid STORE_BACKEND",
		},
		{
			name:    "Unknown storage",
			env:     map[string]string{"STORAGE_BACKEND": "ftp"},
			message: "invalid STORAGE_BACKEND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(".")
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

// TestValidateRequired verifies that required tags are enforced on nested structs.
func TestValidateRequired(t *testing.T) {
	type inner struct {
		Token string `mapstructure:"TOKEN" required:"true"`
	}
	type outer struct {
		Inner inner `mapstructure:",squash"`
	}

	err := validateRequired(&outer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required configuration: TOKEN")

	assert.NoError(t, validateRequired(&outer{Inner: inner{Token: "x"}}))
}
