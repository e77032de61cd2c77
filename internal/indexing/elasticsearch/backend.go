package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"keygate/internal/indexing"
	"keygate/pkg/platform/sentinel"
)

// Config describes how to reach the search node.
type Config struct {
	Node     string
	Username string
	Password string
	APIKey   string
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// Backend implements indexing.Backend on an Elasticsearch cluster.
type Backend struct {
	client *es.Client
}

var _ indexing.Backend = (*Backend)(nil)

// New creates a backend for cfg. The client does not retry on its own; the
// index queue owns retries.
func New(cfg Config) (*Backend, error) {
	if cfg.Node == "" {
		return nil, fmt.Errorf("search node is required")
	}
	client, err := es.NewClient(es.Config{
		Addresses:    []string{cfg.Node},
		Username:     cfg.Username,
		Password:     cfg.Password,
		APIKey:       cfg.APIKey,
		Transport:    cfg.Transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Backend{client: client}, nil
}

func (b *Backend) Index(ctx context.Context, index string, record map[string]any) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	res, err := esapi.IndexRequest{
		Index: index,
		Body:  bytes.NewReader(body),
	}.Do(ctx, b.client)
	if err != nil {
		return fmt.Errorf("index into %s: %w: %w", index, sentinel.ErrUnavailable, err)
	}
	defer drain(res)
	return responseError("index", res)
}

func (b *Backend) Search(ctx context.Context, req indexing.SearchRequest) (*indexing.SearchResponse, error) {
	search := esapi.SearchRequest{Index: req.Indices}
	if len(req.Body) > 0 {
		search.Body = bytes.NewReader(req.Body)
	}
	res, err := search.Do(ctx, b.client)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w: %w", strings.Join(req.Indices, ","), sentinel.ErrUnavailable, err)
	}
	defer drain(res)

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	return &indexing.SearchResponse{StatusCode: res.StatusCode, Body: body}, nil
}

func (b *Backend) DeleteByQuery(ctx context.Context, index string, cutoff time.Time) error {
	body, err := json.Marshal(cutoffQuery(cutoff))
	if err != nil {
		return fmt.Errorf("encode delete query: %w", err)
	}
	res, err := esapi.DeleteByQueryRequest{
		Index: []string{index},
		Body:  bytes.NewReader(body),
	}.Do(ctx, b.client)
	if err != nil {
		return fmt.Errorf("delete by query on %s: %w: %w", index, sentinel.ErrUnavailable, err)
	}
	defer drain(res)
	return responseError("delete by query", res)
}

// cutoffQuery matches documents whose date field is at or before cutoff.
func cutoffQuery(cutoff time.Time) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{
						"range": map[string]any{
							"date": map[string]any{
								"lte": cutoff.UTC().Format(time.RFC3339Nano),
							},
						},
					},
				},
			},
		},
	}
}

func responseError(op string, res *esapi.Response) error {
	if !res.IsError() {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	err := fmt.Errorf("%s: status %d: %s", op, res.StatusCode, strings.TrimSpace(string(msg)))
	if res.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	return err
}

func drain(res *esapi.Response) {
	if res != nil && res.Body != nil {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}
}
