package config

import "time"

// RelayConfig is the root configuration for a relay instance.
type RelayConfig struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Server    ServerConfig    `yaml:"server"`
	Registry  RegistryConfig  `yaml:"registry"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Router    RouterConfig    `yaml:"router"`
	Sweeper   SweeperConfig   `yaml:"sweeper"`
	Assist    AssistConfig    `yaml:"assist"`
	Journal   JournalConfig   `yaml:"journal"`
}

// InstanceConfig identifies this relay.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ServerConfig holds the WebSocket listener settings.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`       // WebSocket endpoint
	HealthAddr      string        `yaml:"health_addr"`       // Health/debug endpoint
	ReadTimeout     time.Duration `yaml:"read_timeout"`      // Read deadline, reset on pong
	PingInterval    time.Duration `yaml:"ping_interval"`     // Server ping period
	WriteTimeout    time.Duration `yaml:"write_timeout"`     // Write deadline for sends
	EventBufferSize int           `yaml:"event_buffer_size"` // Initial event queue capacity
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`  // Graceful stop budget
}

// RegistryConfig selects and configures the connection registry backend.
type RegistryConfig struct {
	Backend  string   `yaml:"backend"` // "memory" or "postgres"
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// RateLimitConfig holds the per-user request quota.
type RateLimitConfig struct {
	Quota  int           `yaml:"quota"`  // Requests per user per window
	Window time.Duration `yaml:"window"` // Sliding window size
}

// RouterConfig holds message router settings.
type RouterConfig struct {
	Workers         int           `yaml:"workers"`
	ProcessTimeout  time.Duration `yaml:"process_timeout"`
	DeliveryRetries int           `yaml:"delivery_retries"`
	DeliveryBackoff time.Duration `yaml:"delivery_backoff"`
}

// SweeperConfig holds lifecycle sweeper settings.
type SweeperConfig struct {
	Interval       time.Duration `yaml:"interval"`
	StaleThreshold time.Duration `yaml:"stale_threshold"`
}

// AssistConfig selects and configures the processing backend.
type AssistConfig struct {
	Backend    string        `yaml:"backend"` // "http" or "echo"
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// JournalConfig holds connection journal settings. The journal shares the
// registry's Postgres database.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}
