package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-api-key", "appBase1", WithBaseURL(srv.URL), WithRateLimit(0))
}

func TestCreateRecords_SingleChunk(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/appBase1/Leads", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))

		var req createRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Records, 2)
		assert.Nil(t, req.PerformUpsert)

		for i := range req.Records {
			req.Records[i].ID = fmt.Sprintf("rec%d", i)
		}
		json.NewEncoder(w).Encode(recordsResponse{Records: req.Records})
	})

	created, err := c.CreateRecords(context.Background(), "Leads", []Record{
		{Fields: map[string]any{"Name": "Dana"}},
		{Fields: map[string]any{"Name": "Lee"}},
	}, nil)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "rec0", created[0].ID)
}

func TestCreateRecords_ChunksAtTen(t *testing.T) {
	var calls atomic.Int32
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req createRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.LessOrEqual(t, len(req.Records), 10)
		json.NewEncoder(w).Encode(recordsResponse{Records: req.Records})
	})

	records := make([]Record, 25)
	for i := range records {
		records[i] = Record{Fields: map[string]any{"Name": fmt.Sprintf("p%d", i)}}
	}

	created, err := c.CreateRecords(context.Background(), "Leads", records, nil)
	require.NoError(t, err)
	assert.Len(t, created, 25)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCreateRecords_Upsert(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.PerformUpsert)
		assert.Equal(t, []string{"Job ID", "Person ID"}, req.PerformUpsert.FieldsToMergeOn)
		json.NewEncoder(w).Encode(recordsResponse{Records: req.Records})
	})

	_, err := c.CreateRecords(context.Background(), "Leads",
		[]Record{{Fields: map[string]any{"Job ID": "j1", "Person ID": "p1"}}},
		[]string{"Job ID", "Person ID"},
	)
	require.NoError(t, err)
}

func TestCreateRecords_APIError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":{"type":"INVALID_REQUEST"}}`))
	})

	_, err := c.CreateRecords(context.Background(), "Leads", []Record{{Fields: map[string]any{}}}, nil)
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 422, apiErr.StatusCode)
}

func TestPatchRecord(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/appBase1/Jobs/rec42", r.URL.Path)

		var body struct {
			Fields map[string]any `json:"fields"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "completed", body.Fields["Status"])

		json.NewEncoder(w).Encode(Record{ID: "rec42", Fields: body.Fields})
	})

	err := c.PatchRecord(context.Background(), "Jobs", "rec42", map[string]any{"Status": "completed"})
	require.NoError(t, err)
}

func TestListRecords_FollowsOffsets(t *testing.T) {
	var calls atomic.Int32
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, `{Tenant ID} = 'client-7'`, r.URL.Query().Get("filterByFormula"))

		switch n {
		case 1:
			assert.Empty(t, r.URL.Query().Get("offset"))
			json.NewEncoder(w).Encode(recordsResponse{
				Records: []Record{{ID: "rec1", Fields: map[string]any{}}},
				Offset:  "cursor-a",
			})
		case 2:
			assert.Equal(t, "cursor-a", r.URL.Query().Get("offset"))
			json.NewEncoder(w).Encode(recordsResponse{
				Records: []Record{{ID: "rec2", Fields: map[string]any{}}},
			})
		default:
			t.Fatal("unexpected extra page request")
		}
	})

	records, err := c.ListRecords(context.Background(), "Leads", ListOptions{
		FilterByFormula: `{Tenant ID} = 'client-7'`,
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "rec1", records[0].ID)
	assert.Equal(t, "rec2", records[1].ID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestListRecords_FieldsAndMax(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, []string{"Email", "Phone"}, r.URL.Query()["fields[]"])
		assert.Equal(t, "100", r.URL.Query().Get("maxRecords"))
		json.NewEncoder(w).Encode(recordsResponse{})
	})

	records, err := c.ListRecords(context.Background(), "Leads", ListOptions{
		Fields:     []string{"Email", "Phone"},
		MaxRecords: 100,
	})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestListRecords_APIError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"forbidden"}`))
	})

	_, err := c.ListRecords(context.Background(), "Leads", ListOptions{})
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.StatusCode)
}

func TestContextCancellation(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should have been cancelled")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListRecords(ctx, "Leads", ListOptions{})
	require.Error(t, err)
}

func TestAPIError_Error(t *testing.T) {
	t.Parallel()
	e := &APIError{StatusCode: 422, Body: `{"error":"invalid"}`}
	assert.Equal(t, `airtable: HTTP 422: {"error":"invalid"}`, e.Error())
}
