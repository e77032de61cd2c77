// Package apikey holds the key stores behind ports.KeyStore: an in-memory
// store for development, a PostgreSQL store, and read-through caches.
//
// Stores never see or keep the raw key beyond hashing it; records are
// indexed by HashKey(raw).
package apikey

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashKey returns the lookup digest for a raw key. Keys are UUIDs, so the
// raw value is lowercased first to make lookups case-insensitive.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(raw))))
	return hex.EncodeToString(sum[:])
}
