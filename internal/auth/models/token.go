package models

// TokenPurpose scopes a token verification to one kind of token so a token
// minted for another flow cannot be replayed as a login token.
type TokenPurpose string

// PurposeLoginAccess is the only purpose the token authenticator accepts.
const PurposeLoginAccess TokenPurpose = "login-access-token"

// TokenClaims is the structured payload of a verified bearer token.
// Subject has the form "acct:<id>@<issuer-domain>".
type TokenClaims struct {
	Subject string
	Scopes  []string
}
