package storage

import (
	"fmt"
	"log"
	"os"
	"time"

	"linku/backend/internal/config"
	"linku/backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the configured database driver.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
	switch cfg.Driver {
	case "postgres", "":
		return gorm.Open(postgres.Open(cfg.DSN), gcfg)
	case "sqlite":
		db, err := gorm.Open(sqlite.Open(cfg.DSN), gcfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// one writer at a time avoids SQLITE_BUSY under concurrent requests
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

// AllModels is the migration set; users and talent_posts are read models owned
// by other services but are created here so a standalone database works.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.TalentPost{},
		&models.ChatRoom{},
		&models.ChatMessage{},
		&models.ExitRecord{},
		&models.LinkuConnection{},
		&models.LinkuReview{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
