// Package mock provides an in-process fake of the goose backend for tests.
//
// Backend speaks the same Connect unary JSON protocol as the real service
// for the AuthService and APIKeyService procedures. It issues HS256 session
// tokens, records every request with its Authorization header, and can be
// switched into failure modes with SetBehavior:
//
//	backend := mock.NewBackend(mock.BackendConfig{})
//	defer backend.Close()
//
//	backend.SetBehavior(mock.Behavior{FailLogout: true})
//
// Identity assertions are not verified. The assertion string becomes the
// user's external identity id, so tests pick users by name. Assertions
// starting with "invalid" are rejected.
//
// Token expiry is driven by a Clock; pass a ManualClock in BackendConfig
// and Advance it to expire sessions without sleeping.
package mock
