package gateway

import (
	"net/http"

	"golang.org/x/oauth2"

	"goose/internal/store"
)

// bearerTransport attaches the stored session token to each request.
// The store is read on every round trip; nothing is cached here.
type bearerTransport struct {
	store store.Store
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, ok := t.store.Get(store.TokenKey)
	if !ok || token == "" {
		return t.base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request.
	authed := req.Clone(req.Context())
	(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(authed)

	return t.base.RoundTrip(authed)
}
