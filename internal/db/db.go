package db

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"estate-marketplace-backend/config"
	"estate-marketplace-backend/internal/model"
)

// Models lists every table the service owns, in migration order.
var Models = []any{
	&model.User{},
	&model.Post{},
	&model.PostDetail{},
	&model.SavedPost{},
	&model.Visit{},
	&model.Notification{},
	&model.Chat{},
	&model.Message{},
	&model.Rating{},
	&model.PushSubscription{},
}

// acceptedSlotIndex keeps at most one ACCEPTED visit per post, date and slot.
const acceptedSlotIndex = `CREATE UNIQUE INDEX IF NOT EXISTS uniq_visits_accepted_slot ` +
	`ON visits (post_id, date, time_slot) WHERE status = 'ACCEPTED'`

// Open connects to the configured database without migrating.
func Open(cfg *config.DatabaseConfig, level logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres", "":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}
	return db, nil
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	slog.Info("running database migrations")
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	if err := db.Exec(acceptedSlotIndex).Error; err != nil {
		return fmt.Errorf("DDL failed on %q: %w", acceptedSlotIndex, err)
	}
	slog.Info("database initialization complete")
	return nil
}

// Init connects and migrates.
func Init(cfg *config.DatabaseConfig, level logger.LogLevel) (*gorm.DB, error) {
	db, err := Open(cfg, level)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// LogLevel maps a textual level to the gorm logger level.
func LogLevel(s string) logger.LogLevel {
	switch s {
	case "debug":
		return logger.Info
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}
