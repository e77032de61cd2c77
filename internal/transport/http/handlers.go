package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	"keygate/internal/auth/models"
	"keygate/internal/indexing"
	"keygate/pkg/requestcontext"
)

const maxBodyBytes = 1 << 20

// Indexer is the part of the index queue the handlers use.
type Indexer interface {
	Submit(index string, record map[string]any)
	Search(ctx context.Context, req indexing.SearchRequest) (*indexing.SearchResponse, error)
}

// Index names follow Elasticsearch rules: lowercase, no leading '-', '_' or '+'.
var indexName = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,254}$`)

// Handler serves the authenticated /v1 endpoints.
type Handler struct {
	indexer         Indexer
	logger          *slog.Logger
	authEventsIndex string
}

// NewHandler creates a Handler. indexer may be nil when search is disabled.
func NewHandler(indexer Indexer, logger *slog.Logger, authEventsIndex string) *Handler {
	return &Handler{indexer: indexer, logger: logger, authEventsIndex: authEventsIndex}
}

type meResponse struct {
	Scheme models.Scheme `json:"scheme"`
	ID     any           `json:"id"`
	Scopes []string      `json:"scopes"`
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := requestcontext.Identity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	resp := meResponse{Scheme: identity.Scheme(), Scopes: identity.GrantedScopes()}
	switch id := identity.(type) {
	case models.APIKeyIdentity:
		resp.ID = id.ID
	case models.UserIdentity:
		resp.ID = id.ID
	}
	if resp.Scopes == nil {
		resp.Scopes = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	index, ok := h.indexParam(w, r)
	if !ok {
		return
	}
	body, ok := readJSONBody(w, r)
	if !ok {
		return
	}
	if h.indexer == nil {
		writeError(w, http.StatusServiceUnavailable, "search_unavailable", "Search is not enabled")
		return
	}

	resp, err := h.indexer.Search(ctx, indexing.SearchRequest{Indices: []string{index}, Body: body})
	if err != nil {
		h.logger.ErrorContext(ctx, "search failed",
			"index", index,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		writeError(w, http.StatusBadGateway, "search_failed", "Search backend request failed")
		return
	}
	if resp == nil {
		writeError(w, http.StatusServiceUnavailable, "search_unavailable", "Search is not enabled")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

func (h *Handler) handleSubmitEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	index, ok := h.indexParam(w, r)
	if !ok {
		return
	}
	if h.authEventsIndex != "" && index == h.authEventsIndex {
		writeError(w, http.StatusForbidden, "forbidden", "Index is reserved")
		return
	}
	body, ok := readJSONBody(w, r)
	if !ok {
		return
	}

	var record map[string]any
	if err := json.Unmarshal(body, &record); err != nil || record == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Body must be a JSON object")
		return
	}
	if _, ok := record["date"]; !ok {
		record["date"] = requestcontext.Now(ctx).UTC()
	}

	if h.indexer != nil {
		h.indexer.Submit(index, record)
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *Handler) indexParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	index := chi.URLParam(r, "index")
	if !indexName.MatchString(index) {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid index name")
		return "", false
	}
	return index, true
}

// readJSONBody returns the body if it is empty or valid JSON.
func readJSONBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "invalid_request", "Body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "Unreadable body")
		return nil, false
	}
	body = bytes.TrimSpace(body)
	if len(body) > 0 && !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "invalid_request", "Body must be valid JSON")
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{"error": code, "error_description": description})
}
