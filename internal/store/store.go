// Package store provides SQLite persistence for the console: the SCIM
// client configuration and the request log buffer.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/scim-tools/scim-console/internal/reqlog"
	"github.com/scim-tools/scim-console/internal/scim"
)

const clientConfigKey = "client_config"

// Store is a SQLite-backed persistence layer.
type Store struct {
	db *sql.DB
}

// Open creates the database under dataDir and runs migrations. Passing
// ":memory:" as dataDir opens an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	dsn := ":memory:"
	if dataDir != ":memory:" {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "console.db") + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS request_logs (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			data TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_request_logs_position ON request_logs(position)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ================== Client Configuration ==================

// SaveClientConfig persists the SCIM client configuration.
func (s *Store) SaveClientConfig(cfg scim.Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		clientConfigKey, string(data),
	)
	return err
}

// LoadClientConfig returns the persisted configuration, or nil when none
// has been saved yet.
func (s *Store) LoadClientConfig() (*scim.Config, error) {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, clientConfigKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg scim.Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("corrupt persisted client config: %w", err)
	}
	return &cfg, nil
}

// ================== Request Logs ==================

// SaveEntries replaces the persisted log buffer with the given entries,
// preserving their order (newest first).
func (s *Store) SaveEntries(entries []*reqlog.Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM request_logs`); err != nil {
		return err
	}
	for i, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO request_logs (id, position, data) VALUES (?, ?, ?)`,
			e.ID, i, string(data),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadEntries returns the persisted buffer, newest first.
func (s *Store) LoadEntries() ([]*reqlog.Entry, error) {
	rows, err := s.db.Query(`SELECT data FROM request_logs ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*reqlog.Entry
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var e reqlog.Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			// A corrupt row should not take the whole buffer down.
			continue
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// ClearEntries removes all persisted log entries.
func (s *Store) ClearEntries() error {
	_, err := s.db.Exec(`DELETE FROM request_logs`)
	return err
}
