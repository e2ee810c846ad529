package export

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scoutline/leadlist-cli/internal/model"
	"github.com/scoutline/leadlist-cli/pkg/salesforce"
)

// sfExternalIDField is the custom external ID field Leads are upserted on.
const sfExternalIDField = "LeadList_Key__c"

// CRMSync pushes enriched leads into Salesforce as Lead records.
type CRMSync struct {
	sf salesforce.Client
}

// NewCRMSync creates a CRMSync using the given Salesforce client.
func NewCRMSync(sf salesforce.Client) *CRMSync {
	return &CRMSync{sf: sf}
}

// SyncLeads upserts leads that resolved an email address. Returns the number
// of records Salesforce accepted; per-record rejections are logged and
// skipped rather than failing the sync.
func (s *CRMSync) SyncLeads(ctx context.Context, records []model.EnrichmentRecord) (int, error) {
	var rows []map[string]any
	for _, r := range records {
		if r.Email == "" {
			continue
		}
		rows = append(rows, map[string]any{
			sfExternalIDField: model.CorrelationKey(r.JobID, r.PersonExternalID),
			"FirstName":       r.FirstName,
			"LastName":        r.LastName,
			"Title":           r.Title,
			"Company":         r.CompanyName,
			"Email":           r.Email,
			"Phone":           r.Phone,
			"Website":         r.CompanyDomain,
			"Industry":        r.CompanyIndustry,
			"LeadSource":      "LeadList",
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	results, err := s.sf.UpsertCollection(ctx, "Lead", sfExternalIDField, rows)
	if err != nil {
		return 0, eris.Wrap(err, "export: salesforce upsert")
	}

	accepted := 0
	for i, res := range results {
		if res.Success {
			accepted++
			continue
		}
		key := ""
		if i < len(rows) {
			key, _ = rows[i][sfExternalIDField].(string)
		}
		zap.L().Warn("export: salesforce rejected lead",
			zap.String("key", key),
			zap.Strings("errors", res.Errors),
		)
	}

	zap.L().Info("export: salesforce sync complete",
		zap.Int("submitted", len(rows)),
		zap.Int("accepted", accepted),
	)
	return accepted, nil
}
