// internal/store/types.go
package store

import (
	"context"
	"errors"
	"time"

	"github.com/racepull/racepull/pkg/types"
)

// ErrNotFound signals that the requested record does not exist (or, for
// cache lookups, that no unexpired successful entry exists).
var ErrNotFound = errors.New("record not found")

// ErrInvalidTransition signals an attempt to move a job backward or out of
// a terminal state.
var ErrInvalidTransition = errors.New("invalid job status transition")

// Config selects and configures the storage backend.
type Config struct {
	// Driver is one of sqlite3, postgres, mysql.
	Driver string `yaml:"driver" json:"driver"`
	// DSN is the driver-specific connection string; for sqlite3 it is the
	// database file path (":memory:" for tests).
	DSN string `yaml:"dsn" json:"dsn"`
}

// DefaultConfig returns a local SQLite configuration.
func DefaultConfig() Config {
	return Config{Driver: "sqlite3", DSN: "racepull.db"}
}

// Store is the persistence contract for jobs and result/cache entries.
//
// Result rows double as cache entries: both successes and failures are
// persisted for audit, but only a fresh successful row satisfies
// LookupCache. Rows are append-only; a refresh inserts a new row rather
// than updating in place.
type Store interface {
	// CreateJob persists a new job record in its initial state.
	CreateJob(ctx context.Context, job *types.Job) error

	// GetJob returns a job by id, or ErrNotFound.
	GetJob(ctx context.Context, id string) (*types.Job, error)

	// TransitionJob moves a job from one status to another, stamping
	// started/completed times as appropriate. Returns ErrInvalidTransition
	// when the job is not currently in the expected state, which also
	// guards against status regression under concurrency.
	TransitionJob(ctx context.Context, id string, from, to types.JobStatus) error

	// IncrementJobCounters atomically adds one processed URL to the job,
	// crediting the success or error counter. The update is a single
	// statement so concurrent workers never lose updates and a status poll
	// always observes success+error == processed.
	IncrementJobCounters(ctx context.Context, id string, success bool) error

	// InsertResult appends one per-URL outcome row.
	InsertResult(ctx context.Context, rec *types.JobResultRecord) error

	// ResultsForJob lists a job's result rows in insertion order.
	ResultsForJob(ctx context.Context, jobID string) ([]types.JobResultRecord, error)

	// RecentResults lists an owner's newest result rows across jobs.
	RecentResults(ctx context.Context, owner string, limit int) ([]types.JobResultRecord, error)

	// LookupCache returns the freshest successful entry for (owner, hash)
	// that has not expired at now, or ErrNotFound. Failed entries never
	// satisfy a lookup.
	LookupCache(ctx context.Context, owner, urlHash string, now time.Time) (*types.JobResultRecord, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the connection pool.
	Close() error
}
