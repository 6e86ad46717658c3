// Package cli holds the terminal-facing helpers shared by goose commands:
// error types that map to exit codes, go-pretty tables for keys and
// profiles, a spinner for browser waits, and a masked prompt for pasting
// an identity assertion.
package cli
