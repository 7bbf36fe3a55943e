package datastore

import (
	"log"
	"os"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aquatrace/aquatrace-go/internal/logging"
)

// createGormLogger builds a GORM logger that stays quiet in normal operation
// and becomes verbose in debug mode.
func createGormLogger(debug bool) logger.Interface {
	level := logger.Error
	if debug {
		level = logger.Info
	}
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// performAutoMigration runs the schema migration for both tables.
func performAutoMigration(db *gorm.DB, dbType string) error {
	migrationStart := time.Now()

	if err := db.AutoMigrate(&User{}, &Upload{}); err != nil {
		return err
	}

	logging.ForService("datastore").Debug("database migration completed",
		"db_type", dbType,
		"duration", time.Since(migrationStart))
	return nil
}
