package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultListenAddr      = ":8080"
	DefaultHealthAddr      = ":8081"
	DefaultReadTimeout     = 60 * time.Second
	DefaultPingInterval    = 54 * time.Second
	DefaultWriteTimeout    = 5 * time.Second
	DefaultEventBufferSize = 1024
	DefaultShutdownTimeout = 10 * time.Second
	DefaultRegistryBackend = "memory"
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 10
	DefaultMinConns        = 2
	DefaultQuota           = 10
	DefaultWindow          = time.Minute
	DefaultWorkers         = 16
	DefaultProcessTimeout  = 30 * time.Second
	DefaultDeliveryRetries = 2
	DefaultDeliveryBackoff = 100 * time.Millisecond
	DefaultSweepInterval   = 5 * time.Minute
	DefaultStaleThreshold  = time.Hour
	DefaultAssistBackend   = "echo"
	DefaultAssistTimeout   = 30 * time.Second
	DefaultAssistRetries   = 3
	DefaultBatchSize       = 200
	DefaultFlushInterval   = 5 * time.Second
)

func (c *RelayConfig) applyDefaults() {
	// Server defaults
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.HealthAddr == "" {
		c.Server.HealthAddr = DefaultHealthAddr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.PingInterval == 0 {
		c.Server.PingInterval = DefaultPingInterval
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.EventBufferSize == 0 {
		c.Server.EventBufferSize = DefaultEventBufferSize
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Registry defaults
	if c.Registry.Backend == "" {
		c.Registry.Backend = DefaultRegistryBackend
	}
	applyDBDefaults(&c.Registry.Postgres)

	// Rate limit defaults
	if c.RateLimit.Quota == 0 {
		c.RateLimit.Quota = DefaultQuota
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = DefaultWindow
	}

	// Router defaults
	if c.Router.Workers == 0 {
		c.Router.Workers = DefaultWorkers
	}
	if c.Router.ProcessTimeout == 0 {
		c.Router.ProcessTimeout = DefaultProcessTimeout
	}
	if c.Router.DeliveryRetries == 0 {
		c.Router.DeliveryRetries = DefaultDeliveryRetries
	}
	if c.Router.DeliveryBackoff == 0 {
		c.Router.DeliveryBackoff = DefaultDeliveryBackoff
	}

	// Sweeper defaults
	if c.Sweeper.Interval == 0 {
		c.Sweeper.Interval = DefaultSweepInterval
	}
	if c.Sweeper.StaleThreshold == 0 {
		c.Sweeper.StaleThreshold = DefaultStaleThreshold
	}

	// Assist defaults
	if c.Assist.Backend == "" {
		c.Assist.Backend = DefaultAssistBackend
	}
	if c.Assist.Timeout == 0 {
		c.Assist.Timeout = DefaultAssistTimeout
	}
	if c.Assist.MaxRetries == 0 {
		c.Assist.MaxRetries = DefaultAssistRetries
	}

	// Journal defaults
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
