package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the configured store: postgres when a URL is supplied, the
// pure-Go sqlite driver otherwise (local/dev profile).
func Connect(ctx context.Context, postgresURL, sqlitePath string, maxConns int) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	cfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		PrepareStmt:    true,
		TranslateError: true,
	}
	switch {
	case postgresURL != "":
		db, err = gorm.Open(postgres.Open(postgresURL), cfg)
	case sqlitePath != "":
		db, err = gorm.Open(sqlite.Open(sqlitePath), cfg)
	default:
		return nil, fmt.Errorf("no storage configured: set a postgres URL or an sqlite path")
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	if maxConns > 0 {
		sqlDB.SetMaxOpenConns(maxConns)
		sqlDB.SetMaxIdleConns(maxConns / 2)
	}
	sqlDB.SetConnMaxIdleTime(15 * time.Minute)
	sqlDB.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}

	slog.Default().InfoContext(ctx, "store connected",
		"module", "storage",
		"layer", "adapter",
		"operation", "connect",
		"outcome", "success",
		"postgres", postgresURL != "",
	)
	return db, nil
}

// RunMigrations keeps the schema in step with the models. Schema migration
// tooling is deliberately out of scope; AutoMigrate covers both profiles.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&sessionEventModel{},
		&taskModel{},
		&outboxModel{},
	); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
