package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB is the global database instance
var DB *sql.DB

// Init opens the sqlite database and creates the schema
func Init(dbPath string) error {
	var err error
	DB, err = sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	// :memory: databases are per-connection
	DB.SetMaxOpenConns(1)

	return EnsureSchema()
}

// Close closes the global database
func Close() error {
	if DB == nil {
		return nil
	}
	return DB.Close()
}
