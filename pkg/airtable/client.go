// Package airtable wraps the Airtable REST API for the tenant lead bases:
// batch record creation with optional upsert, single-record patch, and
// formula-filtered listing with transparent offset pagination.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Default base URL for the Airtable API.
const defaultBaseURL = "https://api.airtable.com/v0"

// createChunkSize is the Airtable limit on records per create call.
const createChunkSize = 10

// Record is a single Airtable record.
type Record struct {
	ID     string         `json:"id,omitempty"`
	Fields map[string]any `json:"fields"`
}

// ListOptions filters a List call. Zero value lists the whole table.
type ListOptions struct {
	FilterByFormula string
	Fields          []string
	MaxRecords      int
}

// Client defines the Airtable operations used by this application.
type Client interface {
	// CreateRecords inserts records in API-sized chunks and returns the
	// created records with ids. When mergeOn is non-empty the call is an
	// upsert keyed on those field names.
	CreateRecords(ctx context.Context, table string, records []Record, mergeOn []string) ([]Record, error)
	// PatchRecord updates fields on one record.
	PatchRecord(ctx context.Context, table, recordID string, fields map[string]any) error
	// ListRecords returns all matching records, following pagination offsets
	// until exhausted. Callers never see raw cursors.
	ListRecords(ctx context.Context, table string, opts ListOptions) ([]Record, error)
}

// APIError is returned when Airtable responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("airtable: HTTP %d: %s", e.StatusCode, e.Body)
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

// WithRateLimit overrides the default request rate (5 req/s, the Airtable
// per-base limit).
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
	baseID  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new Airtable client scoped to one base.
func NewClient(apiKey, baseID string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseID:  baseID,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
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

type createRequest struct {
	Records       []Record       `json:"records"`
	PerformUpsert *performUpsert `json:"performUpsert,omitempty"`
}

type performUpsert struct {
	FieldsToMergeOn []string `json:"fieldsToMergeOn"`
}

type recordsResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

func (c *httpClient) CreateRecords(ctx context.Context, table string, records []Record, mergeOn []string) ([]Record, error) {
	created := make([]Record, 0, len(records))
	for start := 0; start < len(records); start += createChunkSize {
		end := min(start+createChunkSize, len(records))

		req := createRequest{Records: records[start:end]}
		if len(mergeOn) > 0 {
			req.PerformUpsert = &performUpsert{FieldsToMergeOn: mergeOn}
		}

		var resp recordsResponse
		if err := c.send(ctx, http.MethodPost, c.tablePath(table), req, &resp); err != nil {
			return nil, eris.Wrap(err, fmt.Sprintf("airtable: create records in %s", table))
		}
		created = append(created, resp.Records...)
	}
	return created, nil
}

func (c *httpClient) PatchRecord(ctx context.Context, table, recordID string, fields map[string]any) error {
	body := map[string]any{"fields": fields}
	path := c.tablePath(table) + "/" + url.PathEscape(recordID)
	var resp Record
	if err := c.send(ctx, http.MethodPatch, path, body, &resp); err != nil {
		return eris.Wrap(err, fmt.Sprintf("airtable: patch record %s in %s", recordID, table))
	}
	return nil
}

func (c *httpClient) ListRecords(ctx context.Context, table string, opts ListOptions) ([]Record, error) {
	var all []Record
	offset := ""
	for {
		q := url.Values{}
		if opts.FilterByFormula != "" {
			q.Set("filterByFormula", opts.FilterByFormula)
		}
		for _, f := range opts.Fields {
			q.Add("fields[]", f)
		}
		if opts.MaxRecords > 0 {
			q.Set("maxRecords", fmt.Sprint(opts.MaxRecords))
		}
		if offset != "" {
			q.Set("offset", offset)
		}

		path := c.tablePath(table)
		if enc := q.Encode(); enc != "" {
			path += "?" + enc
		}

		var resp recordsResponse
		if err := c.send(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return nil, eris.Wrap(err, fmt.Sprintf("airtable: list records in %s", table))
		}
		all = append(all, resp.Records...)

		if resp.Offset == "" {
			return all, nil
		}
		offset = resp.Offset
	}
}

func (c *httpClient) tablePath(table string) string {
	return "/" + url.PathEscape(c.baseID) + "/" + url.PathEscape(table)
}

func (c *httpClient) send(ctx context.Context, method, path string, body any, out any) error {
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
