package indexing

import (
	"context"
	"encoding/json"
	"time"
)

//go:generate mockgen -source=backend.go -destination=mocks/backend.go -package=mocks

// Backend is a search engine that stores indexed records.
type Backend interface {
	// Index stores one record in index.
	Index(ctx context.Context, index string, record map[string]any) error
	// Search runs a query and returns the raw engine response.
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	// DeleteByQuery removes every record in index whose date field is at or
	// before cutoff.
	DeleteByQuery(ctx context.Context, index string, cutoff time.Time) error
}

// SearchRequest is passed to the backend untouched.
type SearchRequest struct {
	Indices []string
	Body    json.RawMessage
}

// SearchResponse carries the backend's status and body as returned.
type SearchResponse struct {
	StatusCode int
	Body       json.RawMessage
}
