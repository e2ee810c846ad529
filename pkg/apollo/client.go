// Package apollo wraps the Apollo.io search API for company and people
// discovery.
package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/scoutline/leadlist-cli/internal/model"
)

// Default base URL for the Apollo API.
const defaultBaseURL = "https://api.apollo.io/v1"

const (
	// companyPageSize caps organization search at a single best-effort page.
	companyPageSize = 50
	// peoplePageSize caps people search per company.
	peoplePageSize = 10
)

// OrganizationFilters select companies by hiring signals, location, and size.
type OrganizationFilters struct {
	JobTitleSignals []string // hiring keywords, matched against open postings
	Locations       []string
	SizeRanges      []string // employee-count buckets, e.g. "50,200"
}

// PeopleFilters select people within a single organization.
type PeopleFilters struct {
	OrganizationExternalID string
	Titles                 []string
}

// Client defines the Apollo search operations used by the orchestrator.
type Client interface {
	SearchOrganizations(ctx context.Context, filters OrganizationFilters) ([]model.CandidateCompany, error)
	SearchPeople(ctx context.Context, filters PeopleFilters) ([]model.CandidatePerson, error)
}

// APIError is returned when Apollo responds with a non-2xx status.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apollo: %s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default request rate (5 req/s).
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new Apollo client. Calls are throttled to 5 req/s by
// default; the Apollo API is shared across all concurrently running jobs.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(5, 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type organizationSearchRequest struct {
	OrganizationNumEmployeesRanges []string `json:"organization_num_employees_ranges,omitempty"`
	OrganizationLocations          []string `json:"organization_locations,omitempty"`
	QOrganizationJobTitles         []string `json:"q_organization_job_titles,omitempty"`
	Page                           int      `json:"page"`
	PerPage                        int      `json:"per_page"`
}

type organization struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	PrimaryDomain         string `json:"primary_domain"`
	EstimatedNumEmployees int    `json:"estimated_num_employees"`
	Industry              string `json:"industry"`
	City                  string `json:"city"`
	State                 string `json:"state"`
	Country               string `json:"country"`
}

type organizationSearchResponse struct {
	Organizations []organization `json:"organizations"`
}

func (c *httpClient) SearchOrganizations(ctx context.Context, filters OrganizationFilters) ([]model.CandidateCompany, error) {
	req := organizationSearchRequest{
		OrganizationNumEmployeesRanges: filters.SizeRanges,
		OrganizationLocations:          filters.Locations,
		QOrganizationJobTitles:         filters.JobTitleSignals,
		Page:                           1,
		PerPage:                        companyPageSize,
	}

	var resp organizationSearchResponse
	if err := c.post(ctx, "/mixed_companies/search", req, &resp); err != nil {
		return nil, eris.Wrap(err, "apollo: search organizations")
	}

	companies := make([]model.CandidateCompany, 0, len(resp.Organizations))
	for _, org := range resp.Organizations {
		companies = append(companies, model.CandidateCompany{
			ExternalID: org.ID,
			Name:       org.Name,
			Domain:     org.PrimaryDomain,
			SizeBucket: sizeBucket(org.EstimatedNumEmployees),
			Industry:   org.Industry,
			Location:   joinLocation(org.City, org.State, org.Country),
		})
	}
	return companies, nil
}

type peopleSearchRequest struct {
	OrganizationIDs []string `json:"organization_ids"`
	PersonTitles    []string `json:"person_titles,omitempty"`
	Page            int      `json:"page"`
	PerPage         int      `json:"per_page"`
}

type person struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Title       string `json:"title"`
	Seniority   string `json:"seniority"`
	LinkedInURL string `json:"linkedin_url"`
}

type peopleSearchResponse struct {
	People []person `json:"people"`
}

func (c *httpClient) SearchPeople(ctx context.Context, filters PeopleFilters) ([]model.CandidatePerson, error) {
	req := peopleSearchRequest{
		OrganizationIDs: []string{filters.OrganizationExternalID},
		PersonTitles:    filters.Titles,
		Page:            1,
		PerPage:         peoplePageSize,
	}

	var resp peopleSearchResponse
	if err := c.post(ctx, "/mixed_people/search", req, &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("apollo: search people for org %s", filters.OrganizationExternalID))
	}

	people := make([]model.CandidatePerson, 0, len(resp.People))
	for _, p := range resp.People {
		people = append(people, model.CandidatePerson{
			ExternalID:        p.ID,
			FirstName:         p.FirstName,
			LastName:          p.LastName,
			Title:             p.Title,
			Seniority:         p.Seniority,
			LinkedInURL:       p.LinkedInURL,
			CompanyExternalID: filters.OrganizationExternalID,
		})
	}
	return people, nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limit")
		}
	}

	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}

	return nil
}

// sizeBucket maps an employee count to the bucket labels used on lead rows.
func sizeBucket(n int) string {
	switch {
	case n <= 0:
		return ""
	case n <= 10:
		return "1-10"
	case n <= 50:
		return "11-50"
	case n <= 200:
		return "51-200"
	case n <= 1000:
		return "201-1000"
	default:
		return "1000+"
	}
}

func joinLocation(city, state, country string) string {
	out := ""
	for _, part := range []string{city, state, country} {
		if part == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += part
	}
	return out
}
