package postgres

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres via dsn and runs AutoMigrate, mirroring the
// teacher's NewDBConnection (custom NowFunc pinned to UTC, warn-level
// gorm logger) minus its sqlite dev-mode branch, since this module only
// ever targets Postgres in production.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return db, nil
}
