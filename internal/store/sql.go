// internal/store/sql.go
//
// Shared SQL implementation of Store. Queries are written with ? placeholders
// and rebound per driver; only the open path and DDL differ between sqlite,
// postgres and mysql (see the per-driver files).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/racepull/racepull/pkg/types"
)

// sqlStore implements Store over database/sql.
type sqlStore struct {
	db     *sql.DB
	driver string
}

// Open connects to the configured backend and ensures the schema exists.
func Open(cfg Config) (Store, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case "sqlite3", "":
		db, err = openSQLite(cfg.DSN)
	case "postgres":
		db, err = openPostgres(cfg.DSN)
	case "mysql":
		db, err = openMySQL(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	s := &sqlStore{db: db, driver: cfg.Driver}
	if s.driver == "" {
		s.driver = "sqlite3"
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *sqlStore) initSchema() error {
	var ddl []string
	switch s.driver {
	case "postgres":
		ddl = postgresSchema
	case "mysql":
		ddl = mysqlSchema
	default:
		ddl = sqliteSchema
	}
	for _, stmt := range ddl {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// rebind converts ? placeholders to the driver's positional form.
func (s *sqlStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) CreateJob(ctx context.Context, job *types.Job) error {
	query := s.rebind(`
		INSERT INTO jobs (id, owner, total_urls, processed_urls, success_count, error_count, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		job.ID, job.Owner, job.TotalURLs, job.ProcessedURLs,
		job.SuccessCount, job.ErrorCount, string(job.Status), job.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (s *sqlStore) GetJob(ctx context.Context, id string) (*types.Job, error) {
	query := s.rebind(`
		SELECT id, owner, total_urls, processed_urls, success_count, error_count, status, created_at, started_at, completed_at
		FROM jobs WHERE id = ?`)

	var (
		job       types.Job
		status    string
		started   sql.NullTime
		completed sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.Owner, &job.TotalURLs, &job.ProcessedURLs,
		&job.SuccessCount, &job.ErrorCount, &status, &job.CreatedAt,
		&started, &completed)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job: %w", err)
	}

	job.Status = types.JobStatus(status)
	if started.Valid {
		t := started.Time
		job.StartedAt = &t
	}
	if completed.Valid {
		t := completed.Time
		job.CompletedAt = &t
	}
	return &job, nil
}

func (s *sqlStore) TransitionJob(ctx context.Context, id string, from, to types.JobStatus) error {
	if !from.CanTransition(to) {
		return ErrInvalidTransition
	}

	now := time.Now().UTC()
	var query string
	var args []interface{}
	switch to {
	case types.JobStatusProcessing:
		query = `UPDATE jobs SET status = ?, started_at = ? WHERE id = ? AND status = ?`
		args = []interface{}{string(to), now, id, string(from)}
	case types.JobStatusCompleted, types.JobStatusFailed:
		query = `UPDATE jobs SET status = ?, completed_at = ? WHERE id = ? AND status = ?`
		args = []interface{}{string(to), now, id, string(from)}
	default:
		return ErrInvalidTransition
	}

	res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("failed to transition job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check transition: %w", err)
	}
	if affected == 0 {
		// Either the job is gone or it is not in the expected state.
		if _, getErr := s.GetJob(ctx, id); getErr != nil {
			return getErr
		}
		return ErrInvalidTransition
	}
	return nil
}

func (s *sqlStore) IncrementJobCounters(ctx context.Context, id string, success bool) error {
	successInc, errorInc := 0, 1
	if success {
		successInc, errorInc = 1, 0
	}

	query := s.rebind(`
		UPDATE jobs
		SET processed_urls = processed_urls + 1,
		    success_count = success_count + ?,
		    error_count = error_count + ?
		WHERE id = ? AND processed_urls < total_urls`)

	res, err := s.db.ExecContext(ctx, query, successInc, errorInc, id)
	if err != nil {
		return fmt.Errorf("failed to increment counters: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check counter update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("counter update rejected for job %s: %w", id, ErrNotFound)
	}
	return nil
}

const resultColumns = `job_id, owner, url, url_hash, status, error_message,
	race_name, participant_name, category, finish_time, bib_number,
	overall_rank, category_rank, pace, platform, created_at, expires_at`

func (s *sqlStore) InsertResult(ctx context.Context, rec *types.JobResultRecord) error {
	query := s.rebind(`
		INSERT INTO results (` + resultColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	var jobID interface{}
	if rec.JobID != "" {
		jobID = rec.JobID
	}

	_, err := s.db.ExecContext(ctx, query,
		jobID, rec.Owner, rec.URL, rec.URLHash, string(rec.Status), rec.ErrorMessage,
		rec.Result.RaceName, rec.Result.ParticipantName, rec.Result.Category,
		rec.Result.FinishTime, rec.Result.BibNumber,
		rec.Result.OverallRank, rec.Result.CategoryRank,
		rec.Result.Pace, rec.Result.Platform,
		rec.CreatedAt.UTC(), rec.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}
	return nil
}

func (s *sqlStore) ResultsForJob(ctx context.Context, jobID string) ([]types.JobResultRecord, error) {
	query := s.rebind(`
		SELECT id, ` + resultColumns + `
		FROM results WHERE job_id = ? ORDER BY id`)
	return s.queryResults(ctx, query, jobID)
}

func (s *sqlStore) RecentResults(ctx context.Context, owner string, limit int) ([]types.JobResultRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := s.rebind(`
		SELECT id, ` + resultColumns + `
		FROM results WHERE owner = ? ORDER BY id DESC LIMIT ?`)
	return s.queryResults(ctx, query, owner, limit)
}

func (s *sqlStore) LookupCache(ctx context.Context, owner, urlHash string, now time.Time) (*types.JobResultRecord, error) {
	query := s.rebind(`
		SELECT id, ` + resultColumns + `
		FROM results
		WHERE owner = ? AND url_hash = ? AND status = ? AND expires_at > ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`)

	records, err := s.queryResults(ctx, query, owner, urlHash, string(types.ResultStatusCompleted), now.UTC())
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return &records[0], nil
}

func (s *sqlStore) queryResults(ctx context.Context, query string, args ...interface{}) ([]types.JobResultRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var records []types.JobResultRecord
	for rows.Next() {
		var (
			rec    types.JobResultRecord
			jobID  sql.NullString
			status string
		)
		err := rows.Scan(
			&rec.ID, &jobID, &rec.Owner, &rec.URL, &rec.URLHash, &status, &rec.ErrorMessage,
			&rec.Result.RaceName, &rec.Result.ParticipantName, &rec.Result.Category,
			&rec.Result.FinishTime, &rec.Result.BibNumber,
			&rec.Result.OverallRank, &rec.Result.CategoryRank,
			&rec.Result.Pace, &rec.Result.Platform,
			&rec.CreatedAt, &rec.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		rec.JobID = jobID.String
		rec.Status = types.ResultStatus(status)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("result iteration failed: %w", err)
	}
	return records, nil
}

func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
