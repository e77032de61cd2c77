package models

import "strings"

// CredentialKind tags which scheme a credential was extracted for.
type CredentialKind int

const (
	CredentialAPIKey CredentialKind = iota + 1
	CredentialBearer
)

// Credential is a caller-supplied secret-bearing string. It lives only for
// the duration of one authentication attempt.
type Credential struct {
	Kind CredentialKind
	Raw  string
}

const (
	queryAPIKey  = "api_key"
	queryToken   = "token"
	bearerPrefix = "Bearer "
)

// APIKeyCredential extracts the API key candidate: the api_key query
// parameter when present, otherwise the Authorization header.
func (r RequestContext) APIKeyCredential() (Credential, bool) {
	raw, ok := r.credential(queryAPIKey)
	return Credential{Kind: CredentialAPIKey, Raw: raw}, ok
}

// BearerCredential extracts the bearer token candidate: the token query
// parameter when present, otherwise the Authorization header.
func (r RequestContext) BearerCredential() (Credential, bool) {
	raw, ok := r.credential(queryToken)
	return Credential{Kind: CredentialBearer, Raw: raw}, ok
}

func (r RequestContext) credential(param string) (string, bool) {
	var raw string
	if r.Query != nil && r.Query.Has(param) {
		raw = r.Query.Get(param)
	} else if r.Header != nil {
		values := r.Header.Values("Authorization")
		if len(values) == 0 {
			return "", false
		}
		raw = values[0]
	} else {
		return "", false
	}
	raw = strings.TrimPrefix(raw, bearerPrefix)
	return raw, true
}
