// Package store owns the SQLite schema and all reads and writes for the
// listening-history log and chart snapshots.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const createTablesQuery = `
CREATE TABLE IF NOT EXISTS PlayEvent (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  artist TEXT NOT NULL,
  title TEXT NOT NULL,
  album TEXT NOT NULL,
  channel TEXT,
  timestamp INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS PlayEventTimestamp ON PlayEvent (timestamp);

CREATE TABLE IF NOT EXISTS ChartSnapshot (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  category TEXT NOT NULL,
  period TEXT NOT NULL,
  payload TEXT NOT NULL,
  timestamp INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS ChartSnapshotKey ON ChartSnapshot (category, period, timestamp);
`

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(createTablesQuery); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
