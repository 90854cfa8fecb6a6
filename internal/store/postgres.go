// internal/store/postgres.go
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		total_urls INTEGER NOT NULL,
		processed_urls INTEGER NOT NULL DEFAULT 0,
		success_count INTEGER NOT NULL DEFAULT 0,
		error_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_owner ON jobs (owner, created_at)`,
	`CREATE TABLE IF NOT EXISTS results (
		id BIGSERIAL PRIMARY KEY,
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
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_results_cache ON results (owner, url_hash, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_results_job ON results (job_id)`,
	`CREATE INDEX IF NOT EXISTS idx_results_owner ON results (owner, id)`,
}

func openPostgres(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return db, nil
}
