package testutil

import (
	"net/http"

	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/requestcontext"
)

// WithPrincipal adds an authenticated principal to the request context,
// simulating what the auth middleware does for a valid bearer token.
// Empty principals are silently ignored.
func WithPrincipal(req *http.Request, principal string) *http.Request {
	p, err := domain.ParsePrincipal(principal)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), p))
}
