package apikey

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"keygate/internal/auth/models"
	kstrings "keygate/pkg/platform/strings"
)

// SeedFile is the YAML layout accepted by LoadSeedFile:
//
//	keys:
//	  - key: 3f2504e0-4f89-11d3-9a0c-0305e82c3301
//	    id: dashboard
//	    scopes: [read, "search:read"]
//	    referrer_restrictions: ["https://app.example.com/*"]
//	    ip_restrictions: ["10.0.0.0/8"]
type SeedFile struct {
	Keys []SeedKey `yaml:"keys"`
}

// SeedKey is one development key.
type SeedKey struct {
	Key                  string   `yaml:"key"`
	ID                   string   `yaml:"id"`
	Scopes               []string `yaml:"scopes"`
	ReferrerRestrictions []string `yaml:"referrer_restrictions"`
	IPRestrictions       []string `yaml:"ip_restrictions"`
}

// ParseSeed decodes a seed document and normalizes its lists.
func ParseSeed(data []byte) (*SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse api key seed: %w", err)
	}
	for i, k := range seed.Keys {
		if k.Key == "" || k.ID == "" {
			return nil, fmt.Errorf("api key seed entry %d: key and id are required", i)
		}
		seed.Keys[i].Scopes = kstrings.Normalize(k.Scopes)
		seed.Keys[i].ReferrerRestrictions = kstrings.Normalize(k.ReferrerRestrictions)
		seed.Keys[i].IPRestrictions = kstrings.Normalize(k.IPRestrictions)
	}
	return &seed, nil
}

// LoadSeedFile reads path and registers every key in store. It returns the
// number of keys loaded.
func LoadSeedFile(ctx context.Context, store *InMemoryStore, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read api key seed: %w", err)
	}
	seed, err := ParseSeed(data)
	if err != nil {
		return 0, err
	}
	for _, k := range seed.Keys {
		store.Put(ctx, k.Key, &models.APIKeyRecord{
			ID:                   models.APIKeyID(k.ID),
			Scopes:               k.Scopes,
			ReferrerRestrictions: k.ReferrerRestrictions,
			IPRestrictions:       k.IPRestrictions,
		})
	}
	return len(seed.Keys), nil
}
