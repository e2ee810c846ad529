package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from JobStatus
		to   JobStatus
		want bool
	}{
		{"pending to finding_companies", JobStatusPending, JobStatusFindingCompanies, true},
		{"finding_companies to finding_people", JobStatusFindingCompanies, JobStatusFindingPeople, true},
		{"finding_people to enriching", JobStatusFindingPeople, JobStatusEnriching, true},
		{"enriching to completed", JobStatusEnriching, JobStatusCompleted, true},
		{"zero-company short-circuit", JobStatusFindingCompanies, JobStatusCompleted, true},
		{"failed from pending", JobStatusPending, JobStatusFailed, true},
		{"failed from enriching", JobStatusEnriching, JobStatusFailed, true},
		{"no skipping stages", JobStatusPending, JobStatusFindingPeople, false},
		{"no going backwards", JobStatusEnriching, JobStatusFindingPeople, false},
		{"pending cannot complete", JobStatusPending, JobStatusCompleted, false},
		{"completed is terminal", JobStatusCompleted, JobStatusFailed, false},
		{"failed is terminal", JobStatusFailed, JobStatusFindingCompanies, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
	assert.False(t, JobStatusPending.IsTerminal())
	assert.False(t, JobStatusEnriching.IsTerminal())
}

func TestCorrelationKey(t *testing.T) {
	assert.Equal(t, "job-1:person-9", CorrelationKey("job-1", "person-9"))
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Dana Reyes", CandidatePerson{FirstName: "Dana", LastName: "Reyes"}.FullName())
	assert.Equal(t, "Dana", CandidatePerson{FirstName: "Dana"}.FullName())
	assert.Equal(t, "Reyes", CandidatePerson{LastName: "Reyes"}.FullName())
}
