// Package export defines the ExportJob entity: the lifecycle row for a
// (file-based, out-of-scope) export pipeline. Only the row lifecycle and
// expiry sweep are implemented here.
package export

import "time"

// Status is the lifecycle state of an export job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is a single export request/result row.
type Job struct {
	ID        string    `json:"id" db:"id"`
	Status    Status    `json:"status" db:"status"`
	FilePath  string    `json:"file_path,omitempty" db:"file_path"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// Expired reports whether the job is a completed job past its expiry,
// i.e. eligible for the scheduled janitor sweep.
func (j *Job) Expired(now time.Time) bool {
	return j.Status == StatusCompleted && !j.ExpiresAt.IsZero() && !j.ExpiresAt.After(now)
}

// FileDeleter is an out-of-scope collaborator hook invoked by the
// expiry sweep to remove the job's backing file, if any. The exporter
// itself lives outside this core; a no-op implementation is provided by
// default.
type FileDeleter interface {
	DeleteFile(path string) error
}

// NoopFileDeleter performs no filesystem operations.
type NoopFileDeleter struct{}

// DeleteFile is a no-op.
func (NoopFileDeleter) DeleteFile(string) error { return nil }
