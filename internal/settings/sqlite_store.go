// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package settings

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// sqliteSchema holds one row per setting.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
) WITHOUT ROWID;
`

// =============================================================================
// SQLITE STORE
// =============================================================================

// SQLiteStore keeps settings in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLiteStore opens (creating if needed) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty SQLite store path", ErrStore)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create database directory: %v", ErrStore, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", ErrStore, path, err)
	}
	// Single writer; avoids SQLITE_BUSY between our own connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to create schema: %v", ErrStore, err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Get returns the stored value or "".
func (s *SQLiteStore) Get(name string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: get %s: %v", ErrStore, name, err)
	}
	return value, nil
}

// Set upserts value under name.
func (s *SQLiteStore) Set(name, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, strftime('%s', 'now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		WHERE settings.value != excluded.value`, name, value)
	if err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrStore, name, err)
	}
	return nil
}

// Delete removes name.
func (s *SQLiteStore) Delete(name string) error {
	if _, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, name); err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrStore, name, err)
	}
	return nil
}

// Keys returns the stored names in sorted order.
func (s *SQLiteStore) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("%w: list keys: %v", ErrStore, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("%w: scan key: %v", ErrStore, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list keys: %v", ErrStore, err)
	}
	return keys, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
