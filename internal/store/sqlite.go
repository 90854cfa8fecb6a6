// internal/store/sqlite.go
package store

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		total_urls INTEGER NOT NULL,
		processed_urls INTEGER NOT NULL DEFAULT 0,
		success_count INTEGER NOT NULL DEFAULT 0,
		error_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		started_at DATETIME,
		completed_at DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_owner ON jobs (owner, created_at)`,
	`CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT,
		owner TEXT NOT NULL,
		url TEXT NOT NULL,
		url_hash TEXT NOT NULL,
		status TEXT NOT NULL,
		error_message TEXT,
		race_name TEXT,
		participant_name TEXT,
		category TEXT,
		finish_time TEXT,
		bib_number TEXT,
		overall_rank INTEGER,
		category_rank INTEGER,
		pace TEXT,
		platform TEXT,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_results_cache ON results (owner, url_hash, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_results_job ON results (job_id)`,
	`CREATE INDEX IF NOT EXISTS idx_results_owner ON results (owner, id)`,
}

func openSQLite(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite database path is required")
	}
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return db, nil
}
