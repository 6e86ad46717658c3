// Package auth provides the machine-readable session status printed by
// `goose auth status -o json`. Scripts can depend on these field names.
package auth
