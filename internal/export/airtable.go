// Package export delivers finished leads to downstream destinations: the
// shared Airtable base, Salesforce, and client-facing XLSX workbooks.
package export

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scoutline/leadlist-cli/internal/model"
	"github.com/scoutline/leadlist-cli/pkg/airtable"
)

// airtableMergeField is the field the Airtable upsert dedupes on.
const airtableMergeField = "Correlation Key"

// AirtableSink mirrors enriched leads into an Airtable table. Re-running a
// job upserts on the correlation key instead of duplicating rows.
type AirtableSink struct {
	client airtable.Client
	table  string
}

// NewAirtableSink creates a sink writing to the given table.
func NewAirtableSink(client airtable.Client, table string) *AirtableSink {
	return &AirtableSink{client: client, table: table}
}

// ExportLeads upserts the given records into Airtable.
func (s *AirtableSink) ExportLeads(ctx context.Context, records []model.EnrichmentRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]airtable.Record, len(records))
	for i, r := range records {
		rows[i] = airtable.Record{Fields: leadFields(r)}
	}

	created, err := s.client.CreateRecords(ctx, s.table, rows, []string{airtableMergeField})
	if err != nil {
		return eris.Wrap(err, "export: airtable upsert")
	}

	zap.L().Debug("export: airtable upsert complete",
		zap.String("table", s.table),
		zap.Int("records", len(created)),
	)
	return nil
}

func leadFields(r model.EnrichmentRecord) map[string]any {
	fields := map[string]any{
		airtableMergeField: model.CorrelationKey(r.JobID, r.PersonExternalID),
		"Job ID":           r.JobID,
		"First Name":       r.FirstName,
		"Last Name":        r.LastName,
		"Title":            r.Title,
		"Seniority":        r.Seniority,
		"LinkedIn":         r.LinkedInURL,
		"Company":          r.CompanyName,
		"Company Domain":   r.CompanyDomain,
		"Company Size":     r.CompanySize,
		"Industry":         r.CompanyIndustry,
		"Location":         r.CompanyLocation,
		"Status":           string(r.EnrichmentStatus),
	}
	if r.Email != "" {
		fields["Email"] = r.Email
	}
	if r.Phone != "" {
		fields["Phone"] = r.Phone
	}
	if r.QualityScore > 0 {
		fields["Quality Score"] = r.QualityScore
		fields["Quality Reason"] = r.QualityReason
	}
	return fields
}
