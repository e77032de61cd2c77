package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keygate/internal/indexing"
	"keygate/pkg/platform/sentinel"
)

type capturedRequest struct {
	Method string
	Path   string
	Body   []byte
	User   string
	Pass   string
}

type fakeNode struct {
	mu       sync.Mutex
	requests []capturedRequest
	status   int
	body     string
}

func (f *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	user, pass, _ := r.BasicAuth()

	f.mu.Lock()
	f.requests = append(f.requests, capturedRequest{Method: r.Method, Path: r.URL.Path, Body: body, User: user, Pass: pass})
	status, respBody := f.status, f.body
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	if respBody == "" {
		respBody = `{}`
	}
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(respBody))
}

func (f *fakeNode) last(t *testing.T) capturedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newTestBackend(t *testing.T, node *fakeNode) *Backend {
	t.Helper()
	server := httptest.NewServer(node)
	t.Cleanup(server.Close)

	backend, err := New(Config{Node: server.URL, Username: "elastic", Password: "changeme"})
	require.NoError(t, err)
	return backend
}

func TestNewRequiresNode(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestIndexPostsDocument(t *testing.T) {
	node := &fakeNode{status: http.StatusCreated, body: `{"result":"created"}`}
	backend := newTestBackend(t, node)

	err := backend.Index(context.Background(), "auth-events", map[string]any{"outcome": "success"})
	require.NoError(t, err)

	req := node.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/auth-events/_doc", req.Path)
	assert.JSONEq(t, `{"outcome":"success"}`, string(req.Body))
	assert.Equal(t, "elastic", req.User)
	assert.Equal(t, "changeme", req.Pass)
}

func TestIndexServerErrorIsUnavailable(t *testing.T) {
	node := &fakeNode{status: http.StatusServiceUnavailable, body: `{"error":"overloaded"}`}
	backend := newTestBackend(t, node)

	err := backend.Index(context.Background(), "auth-events", map[string]any{"n": 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	assert.Contains(t, err.Error(), "overloaded")
}

func TestIndexClientErrorIsNotUnavailable(t *testing.T) {
	node := &fakeNode{status: http.StatusBadRequest, body: `{"error":"mapper_parsing_exception"}`}
	backend := newTestBackend(t, node)

	err := backend.Index(context.Background(), "auth-events", map[string]any{"n": 1})
	require.Error(t, err)
	assert.NotErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestSearchReturnsRawResponse(t *testing.T) {
	node := &fakeNode{body: `{"hits":{"total":{"value":1}}}`}
	backend := newTestBackend(t, node)

	resp, err := backend.Search(context.Background(), indexing.SearchRequest{
		Indices: []string{"auth-events", "requests"},
		Body:    []byte(`{"query":{"match_all":{}}}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"hits":{"total":{"value":1}}}`, string(resp.Body))

	req := node.last(t)
	assert.Equal(t, "/auth-events,requests/_search", req.Path)
	assert.JSONEq(t, `{"query":{"match_all":{}}}`, string(req.Body))
}

func TestSearchPassesErrorStatusThrough(t *testing.T) {
	node := &fakeNode{status: http.StatusNotFound, body: `{"error":"index_not_found_exception"}`}
	backend := newTestBackend(t, node)

	resp, err := backend.Search(context.Background(), indexing.SearchRequest{Indices: []string{"missing"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteByQuerySendsDateRange(t *testing.T) {
	node := &fakeNode{body: `{"deleted":3}`}
	backend := newTestBackend(t, node)
	cutoff := time.Date(2024, time.February, 14, 10, 30, 0, 0, time.UTC)

	require.NoError(t, backend.DeleteByQuery(context.Background(), "auth-events", cutoff))

	req := node.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/auth-events/_delete_by_query", req.Path)

	var query struct {
		Query struct {
			Bool struct {
				Must []struct {
					Range struct {
						Date struct {
							Lte string `json:"lte"`
						} `json:"date"`
					} `json:"range"`
				} `json:"must"`
			} `json:"bool"`
		} `json:"query"`
	}
	require.NoError(t, json.Unmarshal(req.Body, &query))
	require.Len(t, query.Query.Bool.Must, 1)
	assert.Equal(t, "2024-02-14T10:30:00Z", query.Query.Bool.Must[0].Range.Date.Lte)
}
