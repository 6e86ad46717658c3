package config

const (
	// DefaultEndpoint is the backend URL used when none is configured.
	DefaultEndpoint = "http://localhost:8080"

	// DefaultScriptURL is the Google Identity Services client script.
	DefaultScriptURL = "https://accounts.google.com/gsi/client"

	// DefaultRedisPrefix namespaces session keys in redis.
	DefaultRedisPrefix = "goose"
)

// GetDefaultConfig returns default configuration
func GetDefaultConfig() GooseConfig {
	return GooseConfig{
		Endpoint:  DefaultEndpoint,
		ScriptURL: DefaultScriptURL,
		LogLevel:  "info",
		Store: StoreConfig{
			Backend: StoreBackendFile,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: DefaultRedisPrefix,
			},
		},
	}
}
