package model

import (
	"time"
)

// JobStatus represents the current state of a list-building job.
type JobStatus string

const (
	JobStatusPending          JobStatus = "pending"
	JobStatusFindingCompanies JobStatus = "finding_companies"
	JobStatusFindingPeople    JobStatus = "finding_people"
	JobStatusEnriching        JobStatus = "enriching"
	JobStatusCompleted        JobStatus = "completed"
	JobStatusFailed           JobStatus = "failed"
)

// stageOrder maps each non-terminal working status to its position in the
// pipeline. Terminal statuses are not stages.
var stageOrder = map[JobStatus]int{
	JobStatusPending:          0,
	JobStatusFindingCompanies: 1,
	JobStatusFindingPeople:    2,
	JobStatusEnriching:        3,
}

// IsTerminal reports whether the status is completed or failed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransition reports whether moving from s to next is a legal transition.
// Stages advance strictly forward (pending -> finding_companies ->
// finding_people -> enriching -> completed); failed is reachable from any
// non-terminal state. completed may short-circuit from finding_companies when
// discovery returns nothing.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == JobStatusFailed {
		return true
	}
	if next == JobStatusCompleted {
		return s == JobStatusFindingCompanies || s == JobStatusEnriching
	}
	cur, ok := stageOrder[s]
	if !ok {
		return false
	}
	nxt, ok := stageOrder[next]
	if !ok {
		return false
	}
	return nxt == cur+1
}

// JobConfig is the immutable search configuration captured when a job is
// created.
type JobConfig struct {
	TargetTitles      []string `json:"target_titles"`
	CompanySizeRanges []string `json:"company_size_ranges"` // e.g. "50,200"
	CompanyLocations  []string `json:"company_locations"`
	JobKeywords       []string `json:"job_keywords"` // hiring-signal keywords
	ResultLimit       int      `json:"result_limit"`
	TenantID          string   `json:"tenant_id"`
}

// Progress is advisory stage progress, overwritten at each stage boundary.
type Progress struct {
	Step    int    `json:"step"` // 1..4
	Message string `json:"message"`
}

// Job is one execution of the discovery+enrichment pipeline for a tenant.
type Job struct {
	ID          string     `json:"id"`
	Status      JobStatus  `json:"status"`
	Config      JobConfig  `json:"config"`
	Progress    Progress   `json:"progress"`
	ResultCount int        `json:"result_count"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
