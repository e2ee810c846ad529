package apollo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-api-key", WithBaseURL(srv.URL), WithRateLimit(0))
}

func TestSearchOrganizations(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantCount  int
		wantErr    bool
		wantAPIErr bool
		wantStatus int
	}{
		{
			name: "happy path",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/mixed_companies/search", r.URL.Path)
				assert.Equal(t, "test-api-key", r.Header.Get("X-Api-Key"))

				var req organizationSearchRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, []string{"50,200"}, req.OrganizationNumEmployeesRanges)
				assert.Equal(t, []string{"Austin, TX"}, req.OrganizationLocations)
				assert.Equal(t, []string{"recruiter"}, req.QOrganizationJobTitles)
				assert.Equal(t, 50, req.PerPage)

				json.NewEncoder(w).Encode(organizationSearchResponse{
					Organizations: []organization{
						{ID: "org-1", Name: "Acme Staffing", PrimaryDomain: "acme.example", EstimatedNumEmployees: 120, Industry: "Staffing", City: "Austin", State: "TX", Country: "US"},
						{ID: "org-2", Name: "Beta Corp", PrimaryDomain: "beta.example", EstimatedNumEmployees: 40, Industry: "Software"},
					},
				})
			},
			wantCount: 2,
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate limited"}`))
			},
			wantErr:    true,
			wantAPIErr: true,
			wantStatus: 429,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"internal"}`))
			},
			wantErr:    true,
			wantAPIErr: true,
			wantStatus: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, tt.handler)
			companies, err := c.SearchOrganizations(context.Background(), OrganizationFilters{
				JobTitleSignals: []string{"recruiter"},
				Locations:       []string{"Austin, TX"},
				SizeRanges:      []string{"50,200"},
			})

			if tt.wantErr {
				require.Error(t, err)
				if tt.wantAPIErr {
					var apiErr *APIError
					require.ErrorAs(t, err, &apiErr)
					assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
					assert.Equal(t, "/mixed_companies/search", apiErr.Endpoint)
				}
				return
			}
			require.NoError(t, err)
			require.Len(t, companies, tt.wantCount)
			assert.Equal(t, "org-1", companies[0].ExternalID)
			assert.Equal(t, "51-200", companies[0].SizeBucket)
			assert.Equal(t, "Austin, TX, US", companies[0].Location)
			assert.Equal(t, "11-50", companies[1].SizeBucket)
		})
	}
}

func TestSearchOrganizations_Empty(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(organizationSearchResponse{})
	})

	companies, err := c.SearchOrganizations(context.Background(), OrganizationFilters{})
	require.NoError(t, err)
	assert.Empty(t, companies)
}

func TestSearchPeople(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mixed_people/search", r.URL.Path)

		var req peopleSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"org-1"}, req.OrganizationIDs)
		assert.Equal(t, []string{"HR Director"}, req.PersonTitles)
		assert.Equal(t, 10, req.PerPage)

		json.NewEncoder(w).Encode(peopleSearchResponse{
			People: []person{
				{ID: "p-1", FirstName: "Dana", LastName: "Reyes", Title: "HR Director", Seniority: "director", LinkedInURL: "https://linkedin.example/in/dana"},
			},
		})
	})

	people, err := c.SearchPeople(context.Background(), PeopleFilters{
		OrganizationExternalID: "org-1",
		Titles:                 []string{"HR Director"},
	})
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, "p-1", people[0].ExternalID)
	assert.Equal(t, "org-1", people[0].CompanyExternalID)
	assert.Equal(t, "Dana Reyes", people[0].FullName())
}

func TestSearchPeople_APIError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"unauthorized"}`))
	})

	_, err := c.SearchPeople(context.Background(), PeopleFilters{OrganizationExternalID: "org-1"})
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.StatusCode)
}

func TestContextCancellation(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should have been cancelled")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.SearchOrganizations(ctx, OrganizationFilters{})
	require.Error(t, err)
}

func TestMalformedJSON(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})

	_, err := c.SearchOrganizations(context.Background(), OrganizationFilters{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestSizeBucket(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, ""},
		{5, "1-10"},
		{50, "11-50"},
		{200, "51-200"},
		{900, "201-1000"},
		{5000, "1000+"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sizeBucket(tt.n))
	}
}

func TestAPIError_Error(t *testing.T) {
	t.Parallel()
	e := &APIError{Endpoint: "/mixed_people/search", StatusCode: 429, Body: `{"error":"rate limited"}`}
	assert.Equal(t, `apollo: /mixed_people/search: HTTP 429: {"error":"rate limited"}`, e.Error())
}
