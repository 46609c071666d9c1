package db

import (
	_ "embed"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB represents our sqlite3 database file: the bronze staging layer.
type DB struct{ *gorm.DB }

//go:embed schema.sql
var schema string

// Open returns a connection to a migrated sqlite3 database file on disk,
// creating the file and running migrations if necessary.
func Open(filename string) (*DB, error) {
	gdb, err := gorm.Open(sqlite.Open(filename), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("error opening db file at '%s': %w", filename, err)
	}

	// sqlite has a single writer anyway, and a pool of one keeps
	// ":memory:" databases coherent in tests.
	pool, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("error getting connection pool for '%s': %w", filename, err)
	}
	pool.SetMaxOpenConns(1)

	db := &DB{gdb}

	if err := db.Exec(schema).Error; err != nil {
		return nil, fmt.Errorf("error migrating db at '%s': %w", filename, err)
	}

	return db, nil
}

// Close releases the underlying connection pool. Every exit path of a run
// should pass through it exactly once.
func (db *DB) Close() error {
	pool, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("error getting connection pool: %w", err)
	}
	return pool.Close()
}
