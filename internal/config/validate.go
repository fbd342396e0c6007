package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *RelayConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	switch c.Registry.Backend {
	case "memory", "postgres":
	default:
		return fmt.Errorf("registry.backend must be memory or postgres, got %q", c.Registry.Backend)
	}

	// The Postgres block matters when the registry lives there, or when the
	// journal (which shares the database) is enabled.
	if c.Registry.Backend == "postgres" || c.Journal.Enabled {
		if err := c.Registry.Postgres.validate("registry.postgres"); err != nil {
			return err
		}
	}

	if c.RateLimit.Quota < 1 {
		return errors.New("ratelimit.quota must be >= 1")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("ratelimit.window must be > 0")
	}

	if c.Router.Workers < 1 {
		return errors.New("router.workers must be >= 1")
	}
	if c.Router.DeliveryRetries < 0 {
		return errors.New("router.delivery_retries must be >= 0")
	}

	if c.Sweeper.Interval <= 0 {
		return errors.New("sweeper.interval must be > 0")
	}
	if c.Sweeper.StaleThreshold <= 0 {
		return errors.New("sweeper.stale_threshold must be > 0")
	}

	switch c.Assist.Backend {
	case "echo":
	case "http":
		if c.Assist.BaseURL == "" {
			return errors.New("assist.base_url is required when assist.backend is http")
		}
	default:
		return fmt.Errorf("assist.backend must be http or echo, got %q", c.Assist.Backend)
	}

	if c.Journal.Enabled && c.Journal.BatchSize < 1 {
		return errors.New("journal.batch_size must be >= 1")
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
