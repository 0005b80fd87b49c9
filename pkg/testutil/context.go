package testutil

import (
	"net/http"

	"askdata/pkg/domain"
	"askdata/pkg/requestcontext"
)

// WithIdentity adds a caller identity to the request context.
// This simulates what the identity middleware does for resolved callers.
func WithIdentity(req *http.Request, identity domain.Identity) *http.Request {
	return req.WithContext(requestcontext.WithIdentity(req.Context(), identity))
}

// WithAccount adds an account identity for subject to the request context.
// An invalid subject leaves the request unchanged.
func WithAccount(req *http.Request, subject string) *http.Request {
	identity, err := domain.NewAccountIdentity(subject)
	if err != nil {
		return req
	}
	return WithIdentity(req, identity)
}

// WithAnonymous adds an anonymous session identity to the request context.
func WithAnonymous(req *http.Request, session string) *http.Request {
	identity, err := domain.NewAnonymousIdentity(session)
	if err != nil {
		return req
	}
	return WithIdentity(req, identity)
}
