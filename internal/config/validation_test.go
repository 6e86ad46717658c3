package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*GooseConfig)
		wantField string
	}{
		{name: "defaults are valid"},
		{
			name:      "empty endpoint",
			mutate:    func(c *GooseConfig) { c.Endpoint = " " },
			wantField: "endpoint",
		},
		{
			name:      "relative endpoint",
			mutate:    func(c *GooseConfig) { c.Endpoint = "goose.example.com" },
			wantField: "endpoint",
		},
		{
			name:      "unknown backend",
			mutate:    func(c *GooseConfig) { c.Store.Backend = "etcd" },
			wantField: "store.backend",
		},
		{
			name: "redis without address",
			mutate: func(c *GooseConfig) {
				c.Store.Backend = StoreBackendRedis
				c.Store.Redis.Addr = ""
			},
			wantField: "store.redis.addr",
		},
		{
			name:      "port out of range",
			mutate:    func(c *GooseConfig) { c.CallbackPort = 70000 },
			wantField: "callbackPort",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}

			err := cfg.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.wantField, verrs[0].Field)
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "no validation errors", errs.Error())

	errs.Add("a", "is required")
	assert.Equal(t, "field 'a': is required", errs.Error())

	errs.Add("b", "is wrong")
	assert.Equal(t, "validation failed: field 'a': is required; field 'b': is wrong", errs.Error())
}
