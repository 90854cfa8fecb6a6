// internal/store/mysql.go
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id VARCHAR(36) PRIMARY KEY,
		owner VARCHAR(255) NOT NULL,
		total_urls INT NOT NULL,
		processed_urls INT NOT NULL DEFAULT 0,
		success_count INT NOT NULL DEFAULT 0,
		error_count INT NOT NULL DEFAULT 0,
		status VARCHAR(16) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		started_at DATETIME(6) NULL,
		completed_at DATETIME(6) NULL,
		INDEX idx_jobs_owner (owner, created_at)
	)`,
	`CREATE TABLE IF NOT EXISTS results (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		job_id VARCHAR(36) NULL,
		owner VARCHAR(255) NOT NULL,
		url TEXT NOT NULL,
		url_hash CHAR(64) NOT NULL,
		status VARCHAR(16) NOT NULL,
		error_message TEXT NULL,
		race_name TEXT NULL,
		participant_name TEXT NULL,
		category TEXT NULL,
		finish_time VARCHAR(32) NULL,
		bib_number VARCHAR(32) NULL,
		overall_rank INT NULL,
		category_rank INT NULL,
		pace VARCHAR(32) NULL,
		platform VARCHAR(64) NULL,
		created_at DATETIME(6) NOT NULL,
		expires_at DATETIME(6) NOT NULL,
		INDEX idx_results_cache (owner, url_hash, created_at),
		INDEX idx_results_job (job_id),
		INDEX idx_results_owner (owner, id)
	)`,
}

func openMySQL(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("mysql DSN is required")
	}
	// Timestamps scan as time.Time only with parseTime enabled.
	if !strings.Contains(dsn, "parseTime") {
		if strings.Contains(dsn, "?") {
			dsn += "&parseTime=true"
		} else {
			dsn += "?parseTime=true"
		}
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return db, nil
}
