package model

import "fmt"

// CandidateCompany is a company returned by organization discovery. It lives
// only in orchestrator memory; people discovery consumes it.
type CandidateCompany struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Domain     string `json:"domain"`
	SizeBucket string `json:"size_bucket"`
	Industry   string `json:"industry"`
	Location   string `json:"location"`
}

// CandidatePerson is a person returned by people discovery, tagged with the
// external id of the company it was discovered under.
type CandidatePerson struct {
	ExternalID        string `json:"external_id"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Title             string `json:"title"`
	Seniority         string `json:"seniority"`
	LinkedInURL       string `json:"linkedin_url"`
	CompanyExternalID string `json:"company_external_id"`
}

// FullName returns the person's display name.
func (p CandidatePerson) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// EnrichmentStatus records the outcome of contact enrichment for one lead.
type EnrichmentStatus string

const (
	EnrichmentPending EnrichmentStatus = "pending"
	EnrichmentDone    EnrichmentStatus = "enriched"
	EnrichmentFailed  EnrichmentStatus = "failed_enrichment"
)

// EnrichmentRecord is the persisted lead row: a candidate person flattened
// with its parent company fields and the resolved contact details. Rows are
// never updated after insertion.
type EnrichmentRecord struct {
	JobID             string           `json:"job_id"`
	TenantID          string           `json:"tenant_id"`
	PersonExternalID  string           `json:"person_external_id"`
	FirstName         string           `json:"first_name"`
	LastName          string           `json:"last_name"`
	Title             string           `json:"title"`
	Seniority         string           `json:"seniority"`
	LinkedInURL       string           `json:"linkedin_url"`
	CompanyName       string           `json:"company_name"`
	CompanyDomain     string           `json:"company_domain"`
	CompanySize       string           `json:"company_size"`
	CompanyIndustry   string           `json:"company_industry"`
	CompanyLocation   string           `json:"company_location"`
	Email             string           `json:"email,omitempty"`
	Phone             string           `json:"phone,omitempty"`
	EnrichmentStatus  EnrichmentStatus `json:"enrichment_status"`
	QualityScore      float64          `json:"quality_score,omitempty"`
	QualityReason     string           `json:"quality_reason,omitempty"`
}

// CorrelationKey threads a candidate person through to its enrichment result.
func CorrelationKey(jobID, personExternalID string) string {
	return fmt.Sprintf("%s:%s", jobID, personExternalID)
}
