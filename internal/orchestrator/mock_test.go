package orchestrator

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/scoutline/leadlist-cli/internal/model"
	"github.com/scoutline/leadlist-cli/internal/store"
	"github.com/scoutline/leadlist-cli/pkg/apollo"
	"github.com/scoutline/leadlist-cli/pkg/bettercontact"
)

// --- Apollo Mock ---

type mockApolloClient struct {
	mock.Mock
}

func (m *mockApolloClient) SearchOrganizations(ctx context.Context, filters apollo.OrganizationFilters) ([]model.CandidateCompany, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CandidateCompany), args.Error(1)
}

func (m *mockApolloClient) SearchPeople(ctx context.Context, filters apollo.PeopleFilters) ([]model.CandidatePerson, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CandidatePerson), args.Error(1)
}

// --- BetterContact Mock ---

type mockEnrichClient struct {
	mock.Mock
}

func (m *mockEnrichClient) SubmitBatch(ctx context.Context, batch []bettercontact.ContactRequest) (string, error) {
	args := m.Called(ctx, batch)
	return args.String(0), args.Error(1)
}

func (m *mockEnrichClient) GetResults(ctx context.Context, enrichmentJobID string) (*bettercontact.ResultsResponse, error) {
	args := m.Called(ctx, enrichmentJobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bettercontact.ResultsResponse), args.Error(1)
}

// --- Sink Mock ---

type mockSink struct {
	mock.Mock
}

func (m *mockSink) ExportLeads(ctx context.Context, records []model.EnrichmentRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

// --- Scorer Mock ---

type mockScorer struct {
	mock.Mock
}

func (m *mockScorer) ScoreLeads(ctx context.Context, cfg model.JobConfig, records []model.EnrichmentRecord) error {
	args := m.Called(ctx, cfg, records)
	return args.Error(0)
}

// Interface compliance checks.
var (
	_ apollo.Client        = (*mockApolloClient)(nil)
	_ bettercontact.Client = (*mockEnrichClient)(nil)
	_ LeadSink             = (*mockSink)(nil)
	_ Scorer               = (*mockScorer)(nil)
)

// recordingStore wraps a real Store and records every status transition, so
// tests can assert on ordering. It can also inject a status write failure.
type recordingStore struct {
	store.Store

	mu             sync.Mutex
	statuses       []model.JobStatus
	failStatusWith error
}

func (r *recordingStore) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus, progress model.Progress) error {
	r.mu.Lock()
	failWith := r.failStatusWith
	r.mu.Unlock()
	if failWith != nil {
		return failWith
	}
	if err := r.Store.UpdateJobStatus(ctx, jobID, status, progress); err != nil {
		return err
	}
	r.record(status)
	return nil
}

func (r *recordingStore) CompleteJob(ctx context.Context, jobID string, resultCount int) error {
	if err := r.Store.CompleteJob(ctx, jobID, resultCount); err != nil {
		return err
	}
	r.record(model.JobStatusCompleted)
	return nil
}

func (r *recordingStore) FailJob(ctx context.Context, jobID string, errMsg string) error {
	if err := r.Store.FailJob(ctx, jobID, errMsg); err != nil {
		return err
	}
	r.record(model.JobStatusFailed)
	return nil
}

func (r *recordingStore) record(status model.JobStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *recordingStore) recorded() []model.JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.JobStatus, len(r.statuses))
	copy(out, r.statuses)
	return out
}
