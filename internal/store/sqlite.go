package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/scoutline/leadlist-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id               TEXT PRIMARY KEY,
	tenant_id        TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'pending',
	config           TEXT NOT NULL,
	progress_step    INTEGER NOT NULL DEFAULT 0,
	progress_message TEXT NOT NULL DEFAULT '',
	result_count     INTEGER NOT NULL DEFAULT 0,
	error            TEXT,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at     DATETIME
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
	quality_score      REAL NOT NULL DEFAULT 0,
	quality_reason     TEXT NOT NULL DEFAULT '',
	created_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (job_id, person_external_id)
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_tenant ON jobs(tenant_id);
CREATE INDEX IF NOT EXISTS idx_leads_tenant ON leads(tenant_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateJob(ctx context.Context, config model.JobConfig) (*model.Job, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	configJSON, err := json.Marshal(config)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal config")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, tenant_id, status, config, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, config.TenantID, string(model.JobStatusPending), string(configJSON), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert job")
	}

	return &model.Job{
		ID:        id,
		Status:    model.JobStatusPending,
		Config:    config,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, config, progress_step, progress_message, result_count, error, created_at, completed_at
		 FROM jobs WHERE id = ?`,
		jobID,
	)

	var j model.Job
	var configJSON string
	var errMsg sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(&j.ID, &j.Status, &configJSON, &j.Progress.Step, &j.Progress.Message, &j.ResultCount, &errMsg, &j.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrJobNotFound, "sqlite: job %s", jobID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job %s", jobID)
	}

	if err := json.Unmarshal([]byte(configJSON), &j.Config); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal config for job %s", jobID)
	}
	if errMsg.Valid {
		j.Error = errMsg.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	return &j, nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT id, status, config, progress_step, progress_message, result_count, error, created_at, completed_at
	          FROM jobs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.TenantID != "" {
		query += ` AND tenant_id = ?`
		args = append(args, filter.TenantID)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		var j model.Job
		var configJSON string
		var errMsg sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&j.ID, &j.Status, &configJSON, &j.Progress.Step, &j.Progress.Message, &j.ResultCount, &errMsg, &j.CreatedAt, &completedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job")
		}
		if err := json.Unmarshal([]byte(configJSON), &j.Config); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal config for job %s", j.ID)
		}
		if errMsg.Valid {
			j.Error = errMsg.String
		}
		if completedAt.Valid {
			t := completedAt.Time
			j.CompletedAt = &t
		}
		jobs = append(jobs, j)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func (s *SQLiteStore) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus, progress model.Progress) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, progress_step = ?, progress_message = ? WHERE id = ?`,
		string(status), progress.Step, progress.Message, jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job status %s", jobID)
	}
	return checkRowsAffected(res, jobID)
}

func (s *SQLiteStore) UpdateJobProgress(ctx context.Context, jobID string, progress model.Progress) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET progress_step = ?, progress_message = ? WHERE id = ?`,
		progress.Step, progress.Message, jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job progress %s", jobID)
	}
	return checkRowsAffected(res, jobID)
}

func (s *SQLiteStore) CompleteJob(ctx context.Context, jobID string, resultCount int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, result_count = ?, completed_at = ? WHERE id = ?`,
		string(model.JobStatusCompleted), resultCount, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete job %s", jobID)
	}
	return checkRowsAffected(res, jobID)
}

func (s *SQLiteStore) FailJob(ctx context.Context, jobID string, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(model.JobStatusFailed), errMsg, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail job %s", jobID)
	}
	return checkRowsAffected(res, jobID)
}

func (s *SQLiteStore) InsertLeads(ctx context.Context, leads []model.EnrichmentRecord) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert leads")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO leads (
			job_id, tenant_id, person_external_id, first_name, last_name, title,
			seniority, linkedin_url, company_name, company_domain, company_size,
			company_industry, company_location, email, phone, enrichment_status,
			quality_score, quality_reason, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert leads")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	inserted := 0
	for _, l := range leads {
		res, err := stmt.ExecContext(ctx,
			l.JobID, l.TenantID, l.PersonExternalID, l.FirstName, l.LastName, l.Title,
			l.Seniority, l.LinkedInURL, l.CompanyName, l.CompanyDomain, l.CompanySize,
			l.CompanyIndustry, l.CompanyLocation, l.Email, l.Phone, string(l.EnrichmentStatus),
			l.QualityScore, l.QualityReason, now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert lead %s", l.PersonExternalID)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit insert leads")
	}
	return inserted, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, jobID string) ([]model.EnrichmentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, tenant_id, person_external_id, first_name, last_name, title,
		        seniority, linkedin_url, company_name, company_domain, company_size,
		        company_industry, company_location, email, phone, enrichment_status,
		        quality_score, quality_reason
		 FROM leads WHERE job_id = ? ORDER BY person_external_id`,
		jobID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list leads for job %s", jobID)
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
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		l.EnrichmentStatus = model.EnrichmentStatus(status)
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

// checkRowsAffected converts a zero-row update into ErrJobNotFound.
func checkRowsAffected(res sql.Result, jobID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrJobNotFound, "sqlite: job %s", jobID)
	}
	return nil
}
