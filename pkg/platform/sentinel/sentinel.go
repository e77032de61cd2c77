package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Key stores, token verifiers and the
// search backend return these (optionally wrapped) so the auth and indexing
// layers can decide how to collapse them.
//
//   - ErrNotFound: the API key (or other record) does not exist in the store
//   - ErrExpired: a bearer token is past its expiry
//   - ErrUnavailable: the store or backend cannot be reached right now
var (
	ErrNotFound    = errors.New("not found")
	ErrExpired     = errors.New("expired")
	ErrUnavailable = errors.New("unavailable")
)
