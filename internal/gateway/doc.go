// Package gateway is the authenticated call path to the goose backend.
//
// Every request made through a Client passes a bearer transport that reads
// the session token from the store at send time and attaches
//
//	Authorization: Bearer <token>
//
// when one is present. The client never caches the token, so a login or
// logout is visible to the very next call without any propagation code.
//
// Calls use the Connect unary protocol with JSON bodies:
//
//	POST <endpoint>/api.v1.AuthService/Login
//	Content-Type: application/json
//
// Transport failures are returned unchanged. Non-2xx responses become *Error.
// The client performs no retries and no token refresh; interpreting a
// rejected token is the caller's job.
package gateway
