// Package dbtest opens an in-memory SQLite database carrying the cafe schema
// for repository and ledger tests.  Production runs on MySQL; the queries in
// internal/repository stick to the dialect-neutral subset of SQL, so the same
// code paths are exercised here without a database server.
package dbtest

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		username      TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'staff'
	)`,
	`CREATE TABLE computers (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL UNIQUE,
		hourly_rate REAL NOT NULL,
		status      TEXT NOT NULL DEFAULT 'available'
	)`,
	`CREATE TABLE sessions (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		computer_id  INTEGER NOT NULL,
		customer     TEXT NOT NULL DEFAULT 'Anonymous',
		start_time   DATETIME NOT NULL,
		end_time     DATETIME,
		total_amount REAL,
		is_paid      INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE payments (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id   INTEGER NOT NULL,
		amount       REAL NOT NULL,
		payment_time DATETIME NOT NULL
	)`,
	`CREATE INDEX idx_sessions_computer_open ON sessions (computer_id, end_time)`,
}

// Open returns a fresh in-memory database with the schema applied.  The pool
// is pinned to one connection because each SQLite :memory: connection is its
// own database.  The handle is closed automatically when the test ends.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
