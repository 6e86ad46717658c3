// Package store holds the persistent key-value association that backs a goose
// session: the session token under TokenKey and an advisory cached user
// profile under UserKey.
//
// The Store interface is deliberately synchronous and error-free. Backend
// failures are logged and otherwise treated as "value absent", so callers can
// sequence writes after network responses without a second failure path.
//
// # Backends
//
//   - Memory: process-local map, used by tests and ephemeral runs.
//   - File: a single 0600 JSON document under an 0700 directory.
//   - Redis: string keys under a configurable prefix.
//   - LocalStorage: window.localStorage (js/wasm builds only).
//
// The token and the cached profile are written as two independent keys.
// There is no transaction across them; the profile is advisory.
package store
