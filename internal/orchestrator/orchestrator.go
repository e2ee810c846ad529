// Package orchestrator drives a list-building job through its stages:
// company discovery, people discovery, contact enrichment, and persistence.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scoutline/leadlist-cli/internal/model"
	"github.com/scoutline/leadlist-cli/internal/resilience"
	"github.com/scoutline/leadlist-cli/internal/store"
	"github.com/scoutline/leadlist-cli/pkg/apollo"
	"github.com/scoutline/leadlist-cli/pkg/bettercontact"
)

const (
	defaultEnrichBatchSize = 100
	defaultResultLimit     = 500
)

// LeadSink receives each persisted chunk of leads, e.g. an Airtable mirror.
type LeadSink interface {
	ExportLeads(ctx context.Context, records []model.EnrichmentRecord) error
}

// Scorer assigns quality scores to a chunk of leads before persistence.
type Scorer interface {
	ScoreLeads(ctx context.Context, cfg model.JobConfig, records []model.EnrichmentRecord) error
}

// Result summarizes a completed job run.
type Result struct {
	JobID       string `json:"job_id"`
	ResultCount int    `json:"result_count"`
	Companies   int    `json:"companies"`
	People      int    `json:"people"`
}

// Orchestrator executes list-building jobs against the configured providers.
type Orchestrator struct {
	store    store.Store
	apollo   apollo.Client
	enricher bettercontact.Client

	sink        LeadSink
	scorer      Scorer
	batchSize   int
	resultLimit int
	pollOpts    []bettercontact.PollOption

	stateRetry resilience.RetryConfig
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithSink mirrors each persisted chunk to the given sink.
func WithSink(sink LeadSink) Option {
	return func(o *Orchestrator) {
		o.sink = sink
	}
}

// WithScorer scores each chunk before persistence. Scoring failures are
// logged and skipped, not fatal.
func WithScorer(scorer Scorer) Option {
	return func(o *Orchestrator) {
		o.scorer = scorer
	}
}

// WithBatchSize overrides the enrichment chunk size.
func WithBatchSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithResultLimit overrides the fallback lead cap for jobs that set none.
func WithResultLimit(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.resultLimit = n
		}
	}
}

// WithPollOptions forwards poll tuning to the enrichment result wait loop.
func WithPollOptions(opts ...bettercontact.PollOption) Option {
	return func(o *Orchestrator) {
		o.pollOpts = opts
	}
}

// New creates an Orchestrator with the required collaborators.
func New(st store.Store, ap apollo.Client, bc bettercontact.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:       st,
		apollo:      ap,
		enricher:    bc,
		batchSize:   defaultEnrichBatchSize,
		resultLimit: defaultResultLimit,
		stateRetry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: 200 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
			ShouldRetry:    retryUnlessCancelled,
			OnRetry:        resilience.RetryLogger("store", "job state write"),
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func retryUnlessCancelled(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Run executes the job with the given ID from its current state through to
// completed or failed. Running a terminal job is an error and leaves the job
// untouched.
func (o *Orchestrator) Run(ctx context.Context, jobID string) (*Result, error) {
	log := zap.L().With(zap.String("job_id", jobID))

	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, eris.Wrap(err, "orchestrator: load job")
	}
	if job.Status.IsTerminal() {
		return nil, eris.Errorf("orchestrator: job %s is already %s", jobID, job.Status)
	}

	cfg := job.Config
	limit := cfg.ResultLimit
	if limit <= 0 {
		limit = o.resultLimit
	}

	log.Info("orchestrator: starting job",
		zap.Strings("target_titles", cfg.TargetTitles),
		zap.Int("result_limit", limit),
	)

	// Stage 1: company discovery.
	if err := o.setStatus(ctx, jobID, model.JobStatusFindingCompanies, model.Progress{
		Step: 1, Message: "Finding matching companies",
	}); err != nil {
		return nil, err
	}

	companies, err := o.apollo.SearchOrganizations(ctx, apollo.OrganizationFilters{
		JobTitleSignals: cfg.JobKeywords,
		Locations:       cfg.CompanyLocations,
		SizeRanges:      cfg.CompanySizeRanges,
	})
	if err != nil {
		return nil, o.fail(ctx, log, jobID, "company discovery failed", err)
	}
	log.Info("orchestrator: companies found", zap.Int("count", len(companies)))

	if len(companies) == 0 {
		if err := o.complete(ctx, jobID, 0); err != nil {
			return nil, err
		}
		log.Info("orchestrator: no matching companies, job complete")
		return &Result{JobID: jobID}, nil
	}

	// Stage 2: people discovery, capped at limit in discovery order.
	if err := o.setStatus(ctx, jobID, model.JobStatusFindingPeople, model.Progress{
		Step: 2, Message: fmt.Sprintf("Finding people at %d companies", len(companies)),
	}); err != nil {
		return nil, err
	}

	people, companyByID, err := o.discoverPeople(ctx, cfg, companies, limit)
	if err != nil {
		return nil, o.fail(ctx, log, jobID, "people discovery failed", err)
	}
	log.Info("orchestrator: people found", zap.Int("count", len(people)))

	// Stage 3: enrichment and persistence, one chunk at a time.
	if err := o.setStatus(ctx, jobID, model.JobStatusEnriching, model.Progress{
		Step: 3, Message: fmt.Sprintf("Enriching %d contacts", len(people)),
	}); err != nil {
		return nil, err
	}

	inserted := 0
	chunks := chunk(people, o.batchSize)
	for i, batch := range chunks {
		n, err := o.enrichChunk(ctx, log, job, batch, companyByID)
		if err != nil {
			return nil, err
		}
		inserted += n

		processed := i*o.batchSize + len(batch)
		o.updateProgress(ctx, log, jobID, model.Progress{
			Step: 3, Message: fmt.Sprintf("Enriched %d of %d contacts", processed, len(people)),
		})
	}

	// Stage 4: finalize.
	if err := o.complete(ctx, jobID, inserted); err != nil {
		return nil, err
	}

	log.Info("orchestrator: job complete",
		zap.Int("companies", len(companies)),
		zap.Int("people", len(people)),
		zap.Int("leads", inserted),
	)
	return &Result{
		JobID:       jobID,
		ResultCount: inserted,
		Companies:   len(companies),
		People:      len(people),
	}, nil
}

// discoverPeople searches each company in discovery order and stops as soon
// as the cap is reached. Companies after the cut-off are never searched.
func (o *Orchestrator) discoverPeople(ctx context.Context, cfg model.JobConfig, companies []model.CandidateCompany, limit int) ([]model.CandidatePerson, map[string]model.CandidateCompany, error) {
	companyByID := make(map[string]model.CandidateCompany, len(companies))
	var people []model.CandidatePerson

	for _, company := range companies {
		companyByID[company.ExternalID] = company

		found, err := o.apollo.SearchPeople(ctx, apollo.PeopleFilters{
			OrganizationExternalID: company.ExternalID,
			Titles:                 cfg.TargetTitles,
		})
		if err != nil {
			return nil, nil, err
		}

		people = append(people, found...)
		if len(people) >= limit {
			people = people[:limit]
			break
		}
	}
	return people, companyByID, nil
}

// enrichChunk submits one chunk for enrichment, waits for results, scores,
// and persists. Returns the number of rows actually inserted after dedupe.
func (o *Orchestrator) enrichChunk(ctx context.Context, log *zap.Logger, job *model.Job, batch []model.CandidatePerson, companyByID map[string]model.CandidateCompany) (int, error) {
	records := make([]model.EnrichmentRecord, len(batch))
	requests := make([]bettercontact.ContactRequest, len(batch))
	for i, person := range batch {
		company := companyByID[person.CompanyExternalID]
		records[i] = newRecord(job, person, company)
		requests[i] = bettercontact.ContactRequest{
			FirstName:      person.FirstName,
			LastName:       person.LastName,
			CompanyDomain:  company.Domain,
			LinkedInURL:    person.LinkedInURL,
			CorrelationKey: model.CorrelationKey(job.ID, person.ExternalID),
		}
	}

	enrichmentID, err := o.enricher.SubmitBatch(ctx, requests)
	if err != nil {
		return 0, o.fail(ctx, log, job.ID, "enrichment submission failed", err)
	}

	results, err := bettercontact.PollResults(ctx, o.enricher, enrichmentID, o.pollOpts...)
	if err != nil {
		return 0, o.fail(ctx, log, job.ID, "enrichment wait failed", err)
	}

	applyResults(records, results.Data)

	if o.scorer != nil {
		if scoreErr := o.scorer.ScoreLeads(ctx, job.Config, records); scoreErr != nil {
			log.Warn("orchestrator: lead scoring failed, continuing unscored", zap.Error(scoreErr))
		}
	}

	inserted, err := o.store.InsertLeads(ctx, records)
	if err != nil {
		return 0, o.fail(ctx, log, job.ID, "lead persistence failed", err)
	}

	if o.sink != nil {
		if sinkErr := o.sink.ExportLeads(ctx, records); sinkErr != nil {
			return 0, o.fail(ctx, log, job.ID, "lead export failed", sinkErr)
		}
	}

	return inserted, nil
}

// applyResults matches enrichment results back to records by correlation key.
// Results that match no record are dropped.
func applyResults(records []model.EnrichmentRecord, results []bettercontact.ContactResult) {
	byKey := make(map[string]bettercontact.ContactResult, len(results))
	for _, res := range results {
		byKey[res.CorrelationKey] = res
	}

	for i := range records {
		key := model.CorrelationKey(records[i].JobID, records[i].PersonExternalID)
		res, ok := byKey[key]
		if ok && (res.Email != "" || res.Phone != "") {
			records[i].Email = res.Email
			records[i].Phone = res.Phone
			records[i].EnrichmentStatus = model.EnrichmentDone
		} else {
			records[i].EnrichmentStatus = model.EnrichmentFailed
		}
	}
}

func newRecord(job *model.Job, person model.CandidatePerson, company model.CandidateCompany) model.EnrichmentRecord {
	return model.EnrichmentRecord{
		JobID:            job.ID,
		TenantID:         job.Config.TenantID,
		PersonExternalID: person.ExternalID,
		FirstName:        person.FirstName,
		LastName:         person.LastName,
		Title:            person.Title,
		Seniority:        person.Seniority,
		LinkedInURL:      person.LinkedInURL,
		CompanyName:      company.Name,
		CompanyDomain:    company.Domain,
		CompanySize:      company.SizeBucket,
		CompanyIndustry:  company.Industry,
		CompanyLocation:  company.Location,
		EnrichmentStatus: model.EnrichmentPending,
	}
}

// setStatus advances the job to the given status with bounded retries.
// A status that cannot be written is fatal for the run.
func (o *Orchestrator) setStatus(ctx context.Context, jobID string, status model.JobStatus, progress model.Progress) error {
	err := resilience.Do(ctx, o.stateRetry, func(ctx context.Context) error {
		return o.store.UpdateJobStatus(ctx, jobID, status, progress)
	})
	if err != nil {
		return eris.Wrap(err, fmt.Sprintf("orchestrator: set status %s", status))
	}
	return nil
}

// updateProgress is advisory; failures are logged, never fatal.
func (o *Orchestrator) updateProgress(ctx context.Context, log *zap.Logger, jobID string, progress model.Progress) {
	err := resilience.Do(ctx, o.stateRetry, func(ctx context.Context) error {
		return o.store.UpdateJobProgress(ctx, jobID, progress)
	})
	if err != nil {
		log.Warn("orchestrator: progress update failed", zap.Error(err))
	}
}

func (o *Orchestrator) complete(ctx context.Context, jobID string, resultCount int) error {
	err := resilience.Do(ctx, o.stateRetry, func(ctx context.Context) error {
		return o.store.CompleteJob(ctx, jobID, resultCount)
	})
	if err != nil {
		return eris.Wrap(err, "orchestrator: complete job")
	}
	return nil
}

// fail marks the job failed with "stage: cause" and returns the wrapped
// cause. The failure write itself is best effort: if it cannot be persisted
// the error is logged and the original cause still propagates.
func (o *Orchestrator) fail(ctx context.Context, log *zap.Logger, jobID string, stage string, cause error) error {
	msg := stage
	if cause != nil {
		msg = fmt.Sprintf("%s: %s", stage, cause.Error())
	}

	writeErr := resilience.Do(ctx, o.stateRetry, func(ctx context.Context) error {
		return o.store.FailJob(ctx, jobID, msg)
	})
	if writeErr != nil {
		log.Error("orchestrator: could not mark job failed",
			zap.String("stage", stage),
			zap.Error(writeErr),
		)
	}

	log.Error("orchestrator: job failed", zap.String("stage", stage), zap.Error(cause))
	return eris.Wrap(cause, "orchestrator: "+stage)
}
