package models

// Identity is the only value the resolver hands back on success. It carries
// enough for downstream authorization and no secret material.
//
// The interface is sealed: APIKeyIdentity and UserIdentity are the only
// implementations.
type Identity interface {
	Scheme() Scheme
	GrantedScopes() []string
	isIdentity()
}

// Scheme names the credential scheme that produced an identity.
type Scheme string

const (
	SchemeAPIKey Scheme = "api-key"
	SchemeUser   Scheme = "user"
)

// APIKeyIdentity is produced by a recognized, restriction-passing API key.
type APIKeyIdentity struct {
	ID     APIKeyID `json:"id"`
	Scopes []string `json:"scopes"`
}

func (APIKeyIdentity) Scheme() Scheme            { return SchemeAPIKey }
func (i APIKeyIdentity) GrantedScopes() []string { return i.Scopes }
func (APIKeyIdentity) isIdentity()               {}

// UserIdentity is produced by a verified bearer token whose subject names a
// local account.
type UserIdentity struct {
	ID     int64    `json:"id"`
	Scopes []string `json:"scopes"`
}

func (UserIdentity) Scheme() Scheme            { return SchemeUser }
func (i UserIdentity) GrantedScopes() []string { return i.Scopes }
func (UserIdentity) isIdentity()               {}

// HasScope reports whether the identity was granted scope.
func HasScope(identity Identity, scope string) bool {
	if identity == nil {
		return false
	}
	for _, s := range identity.GrantedScopes() {
		if s == scope {
			return true
		}
	}
	return false
}
