package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *HubConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Server.SendQueueSize < 1 {
		return errors.New("server.send_queue_size must be >= 1")
	}
	if c.Server.MaxPayloadBytes < 1 {
		return errors.New("server.max_payload_bytes must be >= 1")
	}

	if c.Stream.MaxSubscriptionsPerClient < 1 {
		return errors.New("stream.max_subscriptions_per_client must be >= 1")
	}
	if c.Stream.RateLimitMaxRequests < 1 {
		return errors.New("stream.rate_limit_max_requests must be >= 1")
	}
	if c.Stream.MaxBatchSize < 1 {
		return errors.New("stream.max_batch_size must be >= 1")
	}
	if c.Stream.ClientTimeout < c.Stream.HeartbeatInterval {
		return fmt.Errorf("stream.client_timeout (%v) cannot be shorter than heartbeat_interval (%v)",
			c.Stream.ClientTimeout, c.Stream.HeartbeatInterval)
	}

	if err := c.Database.Postgres.validate("database.postgres"); err != nil {
		return err
	}

	if c.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if c.NATS.SubjectPrefix == "" {
		return errors.New("nats.subject_prefix is required")
	}
	if c.NATS.BufferSize < 1 {
		return errors.New("nats.buffer_size must be >= 1")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
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
