package token

import (
	"errors"
	"strconv"
	"strings"
)

const accountPrefix = "acct:"

var (
	errMalformedSubject = errors.New("subject must be acct:<id>@<domain>")
	errIssuerMismatch   = errors.New("subject issuer domain mismatch")
	errInvalidAccountID = errors.New("subject account id is not a non-negative integer")
)

// ParseSubject validates a token subject of the form "acct:<id>@<domain>"
// against issuerDomain and returns the account id.
func ParseSubject(subject, issuerDomain string) (int64, error) {
	parts := strings.Split(subject, "@")
	if len(parts) != 2 {
		return 0, errMalformedSubject
	}
	account, domain := parts[0], parts[1]
	if domain != issuerDomain {
		return 0, errIssuerMismatch
	}
	raw, ok := strings.CutPrefix(account, accountPrefix)
	if !ok {
		return 0, errMalformedSubject
	}
	// bitSize 63 keeps the value inside int64 and rejects signs.
	id, err := strconv.ParseUint(raw, 10, 63)
	if err != nil {
		return 0, errInvalidAccountID
	}
	return int64(id), nil
}
