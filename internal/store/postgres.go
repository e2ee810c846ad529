package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/scoutline/leadlist-cli/internal/db"
	"github.com/scoutline/leadlist-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id               TEXT PRIMARY KEY,
	tenant_id        TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'pending',
	config           JSONB NOT NULL,
	progress_step    INT NOT NULL DEFAULT 0,
	progress_message TEXT NOT NULL DEFAULT '',
	result_count     INT NOT NULL DEFAULT 0,
	error            TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at     TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS leads (
	job_id             TEXT NOT NULL REFERENCES jobs(id),
	tenant_id          TEXT NOT NULL,
	person_external_id TEXT NOT NULL,
	first_name         TEXT NOT NULL DEFAULT '',
	last_name          TEXT NOT NULL DEFAULT '',
	title              TEXT NOT NULL DEFAULT '',
	seniority          TEXT NOT NULL DEFAULT '',
	linkedin_url       TEXT NOT NULL DEFAULT '',
	company_name       TEXT NOT NULL DEFAULT '',
	company_domain     TEXT NOT NULL DEFAULT '',
	company_size       TEXT NOT NULL DEFAULT '',
	company_industry   TEXT NOT NULL DEFAULT '',
	company_location   TEXT NOT NULL DEFAULT '',
	email              TEXT NOT NULL DEFAULT '',
	phone              TEXT NOT NULL DEFAULT '',
	enrichment_status  TEXT NOT NULL DEFAULT 'pending',
	quality_score      DOUBLE PRECISION NOT NULL DEFAULT 0,
	quality_reason     TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (job_id, person_external_id)
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_tenant ON jobs(tenant_id);
CREATE INDEX IF NOT EXISTS idx_leads_tenant ON leads(tenant_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, config model.JobConfig) (*model.Job, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	configJSON, err := json.Marshal(config)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal config")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (id, tenant_id, status, config, created_at) VALUES ($1, $2, $3, $4, $5)`,
		id, config.TenantID, string(model.JobStatusPending), configJSON, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert job")
	}

	return &model.Job{
		ID:        id,
		Status:    model.JobStatusPending,
		Config:    config,
		CreatedAt: now,
	}, nil
}

const jobColumns = `id, status, config, progress_step, progress_message, result_count, error, created_at, completed_at`

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, jobID)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrJobNotFound, "postgres: job %s", jobID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job %s", jobID)
	}
	return j, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $1`
	}
	if filter.TenantID != "" {
		args = append(args, filter.TenantID)
		query += ` AND tenant_id = $` + itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus, progress model.Progress) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, progress_step = $2, progress_message = $3 WHERE id = $4`,
		string(status), progress.Step, progress.Message, jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job status %s", jobID)
	}
	return checkTag(tag, jobID)
}

func (s *PostgresStore) UpdateJobProgress(ctx context.Context, jobID string, progress model.Progress) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET progress_step = $1, progress_message = $2 WHERE id = $3`,
		progress.Step, progress.Message, jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job progress %s", jobID)
	}
	return checkTag(tag, jobID)
}

func (s *PostgresStore) CompleteJob(ctx context.Context, jobID string, resultCount int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, result_count = $2, completed_at = $3 WHERE id = $4`,
		string(model.JobStatusCompleted), resultCount, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete job %s", jobID)
	}
	return checkTag(tag, jobID)
}

func (s *PostgresStore) FailJob(ctx context.Context, jobID string, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, error = $2, completed_at = $3 WHERE id = $4`,
		string(model.JobStatusFailed), errMsg, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail job %s", jobID)
	}
	return checkTag(tag, jobID)
}

var leadColumns = []string{
	"job_id", "tenant_id", "person_external_id", "first_name", "last_name", "title",
	"seniority", "linkedin_url", "company_name", "company_domain", "company_size",
	"company_industry", "company_location", "email", "phone", "enrichment_status",
	"quality_score", "quality_reason", "created_at",
}

func (s *PostgresStore) InsertLeads(ctx context.Context, leads []model.EnrichmentRecord) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(leads))
	for _, l := range leads {
		rows = append(rows, []any{
			l.JobID, l.TenantID, l.PersonExternalID, l.FirstName, l.LastName, l.Title,
			l.Seniority, l.LinkedInURL, l.CompanyName, l.CompanyDomain, l.CompanySize,
			l.CompanyIndustry, l.CompanyLocation, l.Email, l.Phone, string(l.EnrichmentStatus),
			l.QualityScore, l.QualityReason, now,
		})
	}

	n, err := db.BulkInsertIgnore(ctx, s.pool, db.InsertConfig{
		Table:        "leads",
		Columns:      leadColumns,
		ConflictKeys: []string{"job_id", "person_external_id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert leads")
	}
	return int(n), nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, jobID string) ([]model.EnrichmentRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT job_id, tenant_id, person_external_id, first_name, last_name, title,
		        seniority, linkedin_url, company_name, company_domain, company_size,
		        company_industry, company_location, email, phone, enrichment_status,
		        quality_score, quality_reason
		 FROM leads WHERE job_id = $1 ORDER BY person_external_id`,
		jobID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list leads for job %s", jobID)
	}
	defer rows.Close()

	var leads []model.EnrichmentRecord
	for rows.Next() {
		var l model.EnrichmentRecord
		var status string
		if err := rows.Scan(
			&l.JobID, &l.TenantID, &l.PersonExternalID, &l.FirstName, &l.LastName, &l.Title,
			&l.Seniority, &l.LinkedInURL, &l.CompanyName, &l.CompanyDomain, &l.CompanySize,
			&l.CompanyIndustry, &l.CompanyLocation, &l.Email, &l.Phone, &status,
			&l.QualityScore, &l.QualityReason,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		l.EnrichmentStatus = model.EnrichmentStatus(status)
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	var configJSON []byte
	var errMsg *string
	var completedAt *time.Time
	if err := row.Scan(&j.ID, &j.Status, &configJSON, &j.Progress.Step, &j.Progress.Message, &j.ResultCount, &errMsg, &j.CreatedAt, &completedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(configJSON, &j.Config); err != nil {
		return nil, eris.Wrap(err, "unmarshal config")
	}
	if errMsg != nil {
		j.Error = *errMsg
	}
	j.CompletedAt = completedAt
	return &j, nil
}

func checkTag(tag pgconn.CommandTag, jobID string) error {
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrJobNotFound, "postgres: job %s", jobID)
	}
	return nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
