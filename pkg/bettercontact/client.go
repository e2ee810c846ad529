// Package bettercontact wraps the BetterContact asynchronous enrichment API
// for resolving emails and phone numbers in bulk.
package bettercontact

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
)

// Default base URL for the BetterContact API.
const defaultBaseURL = "https://app.bettercontact.rocks/api/v2"

// ContactRequest is one person submitted for enrichment. CorrelationKey is
// echoed back on the matching result.
type ContactRequest struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	CompanyDomain  string `json:"company_domain,omitempty"`
	LinkedInURL    string `json:"linkedin_url,omitempty"`
	CorrelationKey string `json:"custom_id"`
}

// ContactResult is one enriched contact from a terminated enrichment job.
type ContactResult struct {
	CorrelationKey string `json:"custom_id"`
	Email          string `json:"contact_email_address"`
	Phone          string `json:"contact_phone_number"`
}

// ResultsResponse is the response from GET /async/{id}.
type ResultsResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"` // "in progress" or "terminated"
	Data   []ContactResult `json:"data"`
}

// Client defines the BetterContact operations used by the orchestrator.
type Client interface {
	SubmitBatch(ctx context.Context, batch []ContactRequest) (string, error)
	GetResults(ctx context.Context, enrichmentJobID string) (*ResultsResponse, error)
}

// APIError is returned on a non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bettercontact: HTTP %d: %s", e.StatusCode, e.Body)
}

// SubmissionError is returned when the API accepts the request at the HTTP
// level but rejects the submission in the response body.
type SubmissionError struct {
	Message string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("bettercontact: submission rejected: %s", e.Message)
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

// WithRateLimit overrides the default request rate (2 req/s).
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

// NewClient creates a new BetterContact client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(2, 2),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type submitRequest struct {
	Data []ContactRequest `json:"data"`
}

type submitResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (c *httpClient) SubmitBatch(ctx context.Context, batch []ContactRequest) (string, error) {
	var resp submitResponse
	if err := c.do(ctx, http.MethodPost, "/async", submitRequest{Data: batch}, &resp); err != nil {
		return "", eris.Wrap(err, "bettercontact: submit batch")
	}
	if !resp.Success || resp.ID == "" {
		return "", &SubmissionError{Message: resp.Message}
	}
	return resp.ID, nil
}

func (c *httpClient) GetResults(ctx context.Context, enrichmentJobID string) (*ResultsResponse, error) {
	var resp ResultsResponse
	if err := c.do(ctx, http.MethodGet, "/async/"+enrichmentJobID, nil, &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("bettercontact: get results %s", enrichmentJobID))
	}
	return &resp, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, body any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limit")
		}
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return eris.Wrap(err, "marshal request")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

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
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}

	return nil
}
