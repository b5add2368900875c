package store

import "time"

// Config aggregates per backend configuration
type Config struct {
	RDS RedisConfig
}

// RedisConfig configures redis connectivity
type RedisConfig struct {
	Enabled bool
	URL     string // redis://[:password@]host:port/db

	// Guard/boot knobs:
	ConnectRetries int           // default 5
	PingTimeout    time.Duration // default 2s
	RetryBase      time.Duration // default 150ms
}

func (c RedisConfig) withDefaults() RedisConfig {
	if c.ConnectRetries <= 0 {
		c.ConnectRetries = 5
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 2 * time.Second
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 150 * time.Millisecond
	}
	return c
}
