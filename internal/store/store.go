// Package store persists job lifecycle rows and enriched lead rows.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/scoutline/leadlist-cli/internal/model"
)

// ErrJobNotFound is returned when a job id does not exist.
var ErrJobNotFound = eris.New("store: job not found")

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Status   model.JobStatus `json:"status,omitempty"`
	TenantID string          `json:"tenant_id,omitempty"`
	Limit    int             `json:"limit,omitempty"`
	Offset   int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the list-building pipeline.
// Job status writes happen after each stage; a crash between stages leaves
// the row reflecting the last completed stage.
type Store interface {
	// Jobs
	CreateJob(ctx context.Context, config model.JobConfig) (*model.Job, error)
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error)
	UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus, progress model.Progress) error
	UpdateJobProgress(ctx context.Context, jobID string, progress model.Progress) error
	CompleteJob(ctx context.Context, jobID string, resultCount int) error
	FailJob(ctx context.Context, jobID string, errMsg string) error

	// Leads. InsertLeads deduplicates on (job_id, person_external_id) and
	// returns the number of rows actually inserted.
	InsertLeads(ctx context.Context, leads []model.EnrichmentRecord) (int, error)
	ListLeads(ctx context.Context, jobID string) ([]model.EnrichmentRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
