package models

// APIKeyID identifies an API key record. It is never the key secret itself.
type APIKeyID string

func (id APIKeyID) String() string { return string(id) }

// APIKeyRecord is owned by the key store and read-only to the resolver.
type APIKeyRecord struct {
	ID     APIKeyID `json:"id"`
	Scopes []string `json:"scopes"`
	// ReferrerRestrictions are shell-glob patterns matched against the Referer
	// header. Empty means unrestricted.
	ReferrerRestrictions []string `json:"referrer_restrictions,omitempty"`
	// IPRestrictions are CIDR ranges or single addresses. Empty means unrestricted.
	IPRestrictions []string `json:"ip_restrictions,omitempty"`
}
