package apikey

import (
	"context"
	"slices"
	"sync"

	"keygate/internal/auth/models"
	"keygate/pkg/platform/sentinel"
)

// InMemoryStore keeps key records in a map keyed by key digest.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.APIKeyRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*models.APIKeyRecord)}
}

// Put registers record under rawKey, replacing any previous record.
func (s *InMemoryStore) Put(_ context.Context, rawKey string, record *models.APIKeyRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[HashKey(rawKey)] = cloneRecord(record)
}

// Delete removes the record registered under rawKey.
func (s *InMemoryStore) Delete(_ context.Context, rawKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, HashKey(rawKey))
}

func (s *InMemoryStore) Lookup(_ context.Context, rawKey string) (*models.APIKeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.records[HashKey(rawKey)]; ok {
		return cloneRecord(record), nil
	}
	return nil, sentinel.ErrNotFound
}

// Len returns the number of registered keys.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// cloneRecord keeps callers from mutating stored slices.
func cloneRecord(r *models.APIKeyRecord) *models.APIKeyRecord {
	if r == nil {
		return nil
	}
	return &models.APIKeyRecord{
		ID:                   r.ID,
		Scopes:               slices.Clone(r.Scopes),
		ReferrerRestrictions: slices.Clone(r.ReferrerRestrictions),
		IPRestrictions:       slices.Clone(r.IPRestrictions),
	}
}
