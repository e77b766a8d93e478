package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const appName = "banner-editor"

var globalLogger *zap.Logger

// Init builds the process logger: JSON in production, colored console otherwise.
// An unknown level keeps the environment default and is reported once built.
func Init(environment string, level string) error {
	var config zap.Config
	if environment == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	parsed, levelErr := zapcore.ParseLevel(level)
	if levelErr == nil {
		config.Level = zap.NewAtomicLevelAt(parsed)
	}

	logger, err := config.Build(zap.Fields(
		zap.String("app", appName),
		zap.String("env", environment),
	))
	if err != nil {
		return err
	}
	if levelErr != nil {
		logger.Warn("Ignoring invalid LOG_LEVEL", zap.String("level", level), zap.Error(levelErr))
	}

	globalLogger = logger
	return nil
}

// Get returns the process logger, or a no-op logger before Init.
func Get() *zap.Logger {
	if globalLogger == nil {
		return zap.NewNop()
	}
	return globalLogger
}

// ForBanner scopes log entries to one banner.
func ForBanner(id int64) *zap.Logger {
	return Get().With(zap.Int64("banner_id", id))
}

// Sync flushes buffered entries.
func Sync() {
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
}
