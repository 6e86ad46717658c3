// Package config loads the goose client configuration.
//
// Configuration lives in a single YAML file, ~/.config/goose/config.yaml by
// default. Defaults are applied first; a missing file is not an error.
//
//	endpoint: https://goose.example.com
//	clientID: 1234.apps.googleusercontent.com
//	store:
//	  backend: redis
//	  redis:
//	    addr: localhost:6379
//
// Command-line flags (--endpoint, --config) override file values in the cmd
// package.
package config
