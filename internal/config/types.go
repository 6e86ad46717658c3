package config

// GooseConfig is the top-level configuration for the goose session client.
type GooseConfig struct {
	// Endpoint is the base URL of the goose backend.
	Endpoint string `yaml:"endpoint"`

	// ClientID is the identity provider's application identifier.
	ClientID string `yaml:"clientID"`

	// ScriptURL is the identity widget's runtime script.
	ScriptURL string `yaml:"scriptURL,omitempty"`

	// CallbackPort is the local port for the loopback sign-in page.
	// Zero picks a free port.
	CallbackPort int `yaml:"callbackPort,omitempty"`

	// Tracing wraps the gateway transport with OpenTelemetry instrumentation.
	Tracing bool `yaml:"tracing,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel,omitempty"`

	Store StoreConfig `yaml:"store"`
}

// StoreBackend selects the session store implementation.
type StoreBackend string

const (
	StoreBackendFile   StoreBackend = "file"
	StoreBackendRedis  StoreBackend = "redis"
	StoreBackendMemory StoreBackend = "memory"
)

// StoreConfig configures the session store.
type StoreConfig struct {
	Backend StoreBackend `yaml:"backend"`

	// Dir is the directory for the file backend. Empty means
	// ~/.config/goose/session.
	Dir string `yaml:"dir,omitempty"`

	Redis RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig configures the redis store backend.
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}
