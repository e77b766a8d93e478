package config

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreBackendSQL   = "sql"
	StoreBackendRedis = "redis"

	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"

	StorageBackendLocal = "local"
	StorageBackendS3    = "s3"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`
	// MaxUploadSizeMB caps request bodies, image uploads included.
	MaxUploadSizeMB int `mapstructure:"MAX_UPLOAD_SIZE_MB" default:"10"`

	// Database holds the banner store configuration.
	Database DatabaseConfig `mapstructure:",squash"`

	// Redis holds the Redis connection and locking configuration.
	Redis RedisConfig `mapstructure:",squash"`

	// Storage holds the asset storage configuration.
	Storage StorageConfig `mapstructure:",squash"`
}

// DatabaseConfig selects and configures the banner record store.
type DatabaseConfig struct {
	// Backend is "sql" (gorm) or "redis".
	Backend string `mapstructure:"STORE_BACKEND" default:"sql"`
	// DSN is a postgres:// URL or a SQLite file path.
	DSN string `mapstructure:"DATABASE_DSN" default:"banners.db"`
}

// RedisConfig holds Redis connection details.
type RedisConfig struct {
	// URL has the form redis://[:password@]host[:port][/database].
	URL string `mapstructure:"REDIS_URL"`
	// LockBackend is "memory" (single process) or "redis" (shared between processes).
	LockBackend string `mapstructure:"LOCK_BACKEND" default:"memory"`
	// LockTTL bounds how long a crashed holder can block a banner.
	LockTTL time.Duration `mapstructure:"LOCK_TTL" default:"30s"`
}

// StorageConfig holds the image storage settings.
type StorageConfig struct {
	// Backend is "local" or "s3".
	Backend string `mapstructure:"STORAGE_BACKEND" default:"local"`
	// Root is the local directory holding banners/<c1>/<c2>/<id>/.
	Root string `mapstructure:"STORAGE_ROOT" default:"./static"`
	// StaticURLPrefix is prepended to public image paths.
	StaticURLPrefix string `mapstructure:"STATIC_URL_PREFIX" default:"/static"`
	// ResizeTimeout bounds the generation of one image variant.
	ResizeTimeout time.Duration `mapstructure:"RESIZE_TIMEOUT" default:"10s"`

	// S3 is used when Backend is "s3".
	S3 S3Config `mapstructure:",squash"`
}

// S3Config holds the bucket settings.
type S3Config struct {
	Bucket string `mapstructure:"S3_BUCKET"`
	Region string `mapstructure:"S3_REGION" default:"us-east-1"`
	// Endpoint overrides the AWS endpoint for S3 compatible services; enables path-style addressing.
	Endpoint string `mapstructure:"S3_ENDPOINT"`
	// Prefix is prepended to every object key.
	Prefix string `mapstructure:"S3_PREFIX"`
	// HTTPTimeout is the per-request timeout of the S3 HTTP client.
	HTTPTimeout time.Duration `mapstructure:"S3_HTTP_TIMEOUT" default:"30s"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	if err := config.validateBackends(); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateBackends checks backend names and the settings each backend depends on.
func (c *AppConfig) validateBackends() error {
	switch c.Database.Backend {
	case StoreBackendSQL:
	case StoreBackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("missing required configuration: REDIS_URL (STORE_BACKEND=redis)")
		}
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q", c.Database.Backend)
	}

	switch c.Redis.LockBackend {
	case LockBackendMemory:
	case LockBackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("missing required configuration: REDIS_URL (LOCK_BACKEND=redis)")
		}
	default:
		return fmt.Errorf("invalid LOCK_BACKEND %q", c.Redis.LockBackend)
	}

	switch c.Storage.Backend {
	case StorageBackendLocal:
	case StorageBackendS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("missing required configuration: S3_BUCKET (STORAGE_BACKEND=s3)")
		}
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q", c.Storage.Backend)
	}

	return nil
}

// NeedsRedis reports whether any component is backed by Redis.
func (c *AppConfig) NeedsRedis() bool {
	return c.Database.Backend == StoreBackendRedis || c.Redis.LockBackend == LockBackendRedis
}

// processTags iterates over the struct fields, binds env keys and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			if err := v.BindEnv(key); err != nil {
				return fmt.Errorf("failed to bind %s: %w", key, err)
			}
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
