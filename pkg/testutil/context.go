package testutil

import (
	"net/http"

	id "kitties/pkg/domain"
	"kitties/pkg/requestcontext"
)

// WithAccount adds an authenticated caller to the request context.
// This simulates what the auth middleware does for a valid bearer token.
func WithAccount(req *http.Request, account id.AccountID) *http.Request {
	return req.WithContext(requestcontext.WithAccountID(req.Context(), account))
}
