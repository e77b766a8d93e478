package database

import (
	"fmt"
	"strings"

	"banner-editor/internal/core/logger"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	// Pure-Go SQLite driver registered as "sqlite".
	_ "modernc.org/sqlite"
)

// IsPostgres reports whether dsn points at PostgreSQL.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Connect opens PostgreSQL for postgres:// URLs and SQLite for anything else.
func Connect(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	}

	var (
		db  *gorm.DB
		err error
	)
	if IsPostgres(dsn) {
		logger.Get().Info("Connecting to PostgreSQL")
		db, err = gorm.Open(postgres.Open(dsn), cfg)
	} else {
		logger.Get().Info("Using SQLite", zap.String("dsn", dsn))
		db, err = gorm.Open(gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if !IsPostgres(dsn) {
		// SQLite allows a single writer; one connection avoids SQLITE_BUSY under concurrent requests.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access database pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}
