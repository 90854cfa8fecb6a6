// pkg/types/types.go
package types

import (
	"time"
)

// ExtractionResult is the normalized output of extracting one result page.
// Every field is independently nullable: a vendor page that omits pace or
// category rank still yields a usable result for the remaining fields.
type ExtractionResult struct {
	RaceName        *string `json:"race_name"`
	ParticipantName *string `json:"participant_name"`
	Category        *string `json:"category"`
	FinishTime      *string `json:"finish_time"`
	BibNumber       *string `json:"bib_number"`
	OverallRank     *int    `json:"overall_rank"`
	CategoryRank    *int    `json:"category_rank"`
	Pace            *string `json:"pace"`
	Platform        *string `json:"platform"`
}

// JobStatus represents the lifecycle state of a batch job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// CanTransition reports whether moving from s to next is a legal forward
// transition. Terminal states never transition.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobStatusQueued:
		return next == JobStatusProcessing || next == JobStatusFailed
	case JobStatusProcessing:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is one batch submission of URLs with aggregate progress counters.
// Counters are monotonically non-decreasing and satisfy
// SuccessCount + ErrorCount == ProcessedURLs <= TotalURLs.
type Job struct {
	ID            string     `json:"id"`
	Owner         string     `json:"owner"`
	TotalURLs     int        `json:"total_urls"`
	ProcessedURLs int        `json:"processed_urls"`
	SuccessCount  int        `json:"success_count"`
	ErrorCount    int        `json:"error_count"`
	Status        JobStatus  `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// ResultStatus is the per-URL outcome within a job.
type ResultStatus string

const (
	ResultStatusCompleted ResultStatus = "completed"
	ResultStatusError     ResultStatus = "error"
)

// JobResultRecord is one row per processed URL within a job. Written once,
// never mutated; error records carry a message instead of result fields.
type JobResultRecord struct {
	ID           int64            `json:"id"`
	JobID        string           `json:"job_id"`
	Owner        string           `json:"owner"`
	URL          string           `json:"url"`
	URLHash      string           `json:"url_hash"`
	Result       ExtractionResult `json:"result"`
	Status       ResultStatus     `json:"status"`
	ErrorMessage *string          `json:"error_message,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	ExpiresAt    time.Time        `json:"expires_at"`
}

// StringPtr returns a pointer to s, or nil when s is empty. Extraction code
// uses it to keep absent fields as JSON null rather than empty strings.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}
