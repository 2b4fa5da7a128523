// Package job models asynchronous ingestion jobs.
package job

import (
	"slices"
	"time"
)

// Status is the lifecycle state of a job.
type Status string

// Job states: queued -> running -> done | error.
const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// IsTerminal reports whether the job has finished.
func (s Status) IsTerminal() bool { return s == StatusDone || s == StatusError }

// MaxErrorSamples bounds the error messages kept per job.
const MaxErrorSamples = 5

// FileResult is the outcome of ingesting one file.
type FileResult struct {
	Filename   string `json:"filename"`
	Collection string `json:"collection"`
	Indexed    int    `json:"indexed"`
	Errors     int    `json:"errors"`
	Error      string `json:"error,omitempty"`
}

// Snapshot is a read-only copy of a job's state.
type Snapshot struct {
	ID           string       `json:"id"`
	Tenant       string       `json:"-"`
	Status       Status       `json:"status"`
	TotalRows    int          `json:"total_rows"`
	IndexedRows  int          `json:"indexed_rows"`
	Errors       int          `json:"errors"`
	ErrorSamples []string     `json:"error_samples"`
	Files        []FileResult `json:"files,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
}

// Job is the mutable state of one ingestion job. It is not safe for
// concurrent use; the job store serializes access.
type Job struct {
	id           string
	tenant       string
	status       Status
	totalRows    int
	indexedRows  int
	errors       int
	errorSamples []string
	files        []FileResult
	createdAt    time.Time
	finishedAt   time.Time
}

// New creates a queued job.
func New(id, tenant string) *Job {
	return &Job{
		id:           id,
		tenant:       tenant,
		status:       StatusQueued,
		errorSamples: []string{},
		createdAt:    time.Now().UTC(),
	}
}

// ID returns the job id.
func (j *Job) ID() string { return j.id }

// Tenant returns the owning tenant.
func (j *Job) Tenant() string { return j.tenant }

// Status returns the current state.
func (j *Job) Status() Status { return j.status }

// Start moves a queued job to running.
func (j *Job) Start() {
	if j.status == StatusQueued {
		j.status = StatusRunning
	}
}

// RecordError keeps msg as an error sample while fewer than MaxErrorSamples are held.
func (j *Job) RecordError(msg string) {
	if len(j.errorSamples) < MaxErrorSamples {
		j.errorSamples = append(j.errorSamples, msg)
	}
}

// AddRows accumulates row counters.
func (j *Job) AddRows(total, indexed, errs int) {
	j.totalRows += total
	j.indexedRows += indexed
	j.errors += errs
}

// AddFile appends a per-file result.
func (j *Job) AddFile(r FileResult) {
	j.files = append(j.files, r)
	if r.Error != "" {
		j.RecordError(r.Filename + ": " + r.Error)
	}
}

// Finish marks the job done. Terminal jobs are left unchanged.
func (j *Job) Finish() {
	if j.status.IsTerminal() {
		return
	}
	j.status = StatusDone
	j.finishedAt = time.Now().UTC()
}

// Fail marks the job as errored with msg as an error sample.
func (j *Job) Fail(msg string) {
	if j.status.IsTerminal() {
		return
	}
	j.RecordError(msg)
	j.status = StatusError
	j.finishedAt = time.Now().UTC()
}

// Snapshot returns a copy of the current state.
func (j *Job) Snapshot() Snapshot {
	s := Snapshot{
		ID:           j.id,
		Tenant:       j.tenant,
		Status:       j.status,
		TotalRows:    j.totalRows,
		IndexedRows:  j.indexedRows,
		Errors:       j.errors,
		ErrorSamples: slices.Clone(j.errorSamples),
		Files:        slices.Clone(j.files),
		CreatedAt:    j.createdAt,
	}
	if !j.finishedAt.IsZero() {
		t := j.finishedAt
		s.FinishedAt = &t
	}
	return s
}
