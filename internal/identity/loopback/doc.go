// Package loopback hosts the identity widget for terminal sessions.
//
// The provider runtime only works inside a browser page, so the Host runs
// a short-lived HTTP server on 127.0.0.1 that serves a page loading the
// provider script, and opens the user's browser on it. The page relays the
// provider's events back over two endpoints:
//
//	POST /credential    {nonce, credential}
//	POST /notification  {nonce, notDisplayed, skipped, reason}
//
// Each page view is identified by a random nonce that is consumed by the
// first event it relays. Events with unknown nonces, or from a foreign
// Origin, are rejected.
package loopback
