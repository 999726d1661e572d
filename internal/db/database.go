package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

var DB *sql.DB

// InitDatabase opens the device database at dbPath and stores it in DB
func InitDatabase(dbPath string) error {
	conn, err := Open(dbPath)
	if err != nil {
		return err
	}
	DB = conn
	log.Printf("Database initialized at: %s", dbPath)
	return nil
}

// Open opens (creating if needed) a SQLite database and migrates its schema
func Open(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := createTables(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return conn, nil
}

func createTables(conn *sql.DB) error {
	statements := []struct {
		name  string
		query string
	}{
		{"control_devices", `
		CREATE TABLE IF NOT EXISTS control_devices (
			id TEXT PRIMARY KEY,
			mac_address TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			show_id TEXT NOT NULL DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 1,
			press_count INTEGER NOT NULL DEFAULT 0,
			last_press DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`},
		{"device_bindings", `
		CREATE TABLE IF NOT EXISTS device_bindings (
			device_id TEXT NOT NULL REFERENCES control_devices(id) ON DELETE CASCADE,
			button_id TEXT NOT NULL,
			command TEXT NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (device_id, button_id)
		);`},
		{"idx_show_id", `CREATE INDEX IF NOT EXISTS idx_show_id ON control_devices(show_id);`},
	}

	for _, stmt := range statements {
		if _, err := conn.Exec(stmt.query); err != nil {
			return fmt.Errorf("failed to create %s: %w", stmt.name, err)
		}
	}
	return nil
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
