package models

import (
	"net/http"
	"net/url"
)

// RequestContext is the read-only view of an inbound request the
// authenticators work from. The web layer builds it; nothing below mutates it.
type RequestContext struct {
	Query    url.Values
	Header   http.Header
	ClientIP string
}

// FromHTTPRequest captures the parts of r the resolver needs. clientIP is the
// address already resolved by the metadata middleware.
func FromHTTPRequest(r *http.Request, clientIP string) RequestContext {
	return RequestContext{
		Query:    r.URL.Query(),
		Header:   r.Header.Clone(),
		ClientIP: clientIP,
	}
}

// Referrer returns the Referer header, or "" when absent.
func (r RequestContext) Referrer() string {
	if r.Header == nil {
		return ""
	}
	return r.Header.Get("Referer")
}
