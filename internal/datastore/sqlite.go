package datastore

import (
	"fmt"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aquatrace/aquatrace-go/internal/conf"
)

// SQLiteStore implements DataStore for SQLite
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

func validateSQLiteConfig(settings *conf.Settings) error {
	if settings.Output.SQLite.Path == "" {
		return fmt.Errorf("SQLite database path is empty")
	}
	return nil
}

// Open sets up the SQLite database connection and runs migrations.
func (store *SQLiteStore) Open() error {
	if err := validateSQLiteConfig(store.Settings); err != nil {
		return err
	}

	dsn := store.Settings.Output.SQLite.Path
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		dir, fileName := filepath.Split(dsn)
		if dir != "" {
			dir = conf.GetBasePath(dir)
		}
		dsn = filepath.Join(dir, fileName)
	}
	// Referential integrity for the upload ledger depends on this pragma.
	dsn += "?_foreign_keys=on"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         createGormLogger(store.Settings.Debug),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// An in-memory database exists per connection, so the pool must not
	// grow beyond one.
	if store.Settings.Output.SQLite.Path == ":memory:" {
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access SQLite connection pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	store.DB = db
	return performAutoMigration(db, "SQLite")
}
