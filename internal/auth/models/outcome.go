package models

import (
	"errors"
	"net/http"
)

// Rejection reasons. They are suitable for logs, never for response bodies.
const (
	ReasonReferrerRestriction = "referrer restriction"
	ReasonIPRestriction       = "ip restriction"
	ReasonNoToken             = "no token found"
	ReasonInvalidToken        = "invalid token"
)

// ErrNoCredential is returned by an authenticator that found nothing it can
// use. It is a fallthrough signal for the resolver, not a failure.
var ErrNoCredential = errors.New("no usable credential")

// Rejection is returned by an authenticator that attempted authentication
// and failed. It terminates resolution.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string { return "credential rejected: " + r.Reason }

// Reject builds a Rejection for reason.
func Reject(reason string) error {
	return &Rejection{Reason: reason}
}

// AuthFailure is the resolver's single failure shape. Status is always 401.
type AuthFailure struct {
	Reason string
	Status int
}

func (f *AuthFailure) Error() string { return "unauthorized: " + f.Reason }

// NewAuthFailure builds an AuthFailure with the fixed 401 status.
func NewAuthFailure(reason string) *AuthFailure {
	return &AuthFailure{Reason: reason, Status: http.StatusUnauthorized}
}

// AsAuthFailure extracts an AuthFailure from err.
func AsAuthFailure(err error) (*AuthFailure, bool) {
	var failure *AuthFailure
	if errors.As(err, &failure) {
		return failure, true
	}
	return nil, false
}
