package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultAddr            = ":8090"
	DefaultWSPath          = "/ws"
	DefaultReadBufferSize  = 4096
	DefaultWriteBufferSize = 4096
	DefaultMaxPayloadBytes = 100 * 1024 * 1024
	DefaultSendQueueSize   = 256
	DefaultWriteTimeout    = 10 * time.Second

	DefaultHeartbeatInterval         = 30 * time.Second
	DefaultClientTimeout             = 60 * time.Second
	DefaultMaxSubscriptionsPerClient = 100
	DefaultRateLimitWindow           = 60 * time.Second
	DefaultRateLimitMaxRequests      = 1000
	DefaultMaxBatchSize              = 50
	DefaultBatchInterval             = 100 * time.Millisecond
	DefaultStatsInterval             = 60 * time.Second
	DefaultQueryTimeout              = 5 * time.Second

	DefaultDBPort    = 5432
	DefaultDBSSLMode = "prefer"
	DefaultMaxConns  = 10
	DefaultMinConns  = 2

	DefaultNATSURL       = "nats://127.0.0.1:4222"
	DefaultSubjectPrefix = "ursus.events"
	DefaultEventBuffer   = 4096
	DefaultReconnectWait = 2 * time.Second
	DefaultMaxReconnects = -1 // retry forever

	DefaultMetricsPort = 9090
	DefaultMetricsPath = "/metrics"
)

func (c *HubConfig) applyDefaults() {
	// Server defaults
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.WSPath == "" {
		c.Server.WSPath = DefaultWSPath
	}
	if c.Server.ReadBufferSize == 0 {
		c.Server.ReadBufferSize = DefaultReadBufferSize
	}
	if c.Server.WriteBufferSize == 0 {
		c.Server.WriteBufferSize = DefaultWriteBufferSize
	}
	if c.Server.MaxPayloadBytes == 0 {
		c.Server.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	if c.Server.SendQueueSize == 0 {
		c.Server.SendQueueSize = DefaultSendQueueSize
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}

	// Stream defaults
	if c.Stream.HeartbeatInterval == 0 {
		c.Stream.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Stream.ClientTimeout == 0 {
		c.Stream.ClientTimeout = DefaultClientTimeout
	}
	if c.Stream.MaxSubscriptionsPerClient == 0 {
		c.Stream.MaxSubscriptionsPerClient = DefaultMaxSubscriptionsPerClient
	}
	if c.Stream.RateLimitWindow == 0 {
		c.Stream.RateLimitWindow = DefaultRateLimitWindow
	}
	if c.Stream.RateLimitMaxRequests == 0 {
		c.Stream.RateLimitMaxRequests = DefaultRateLimitMaxRequests
	}
	if c.Stream.MaxBatchSize == 0 {
		c.Stream.MaxBatchSize = DefaultMaxBatchSize
	}
	if c.Stream.BatchInterval == 0 {
		c.Stream.BatchInterval = DefaultBatchInterval
	}
	if c.Stream.StatsInterval == 0 {
		c.Stream.StatsInterval = DefaultStatsInterval
	}
	if c.Stream.QueryTimeout == 0 {
		c.Stream.QueryTimeout = DefaultQueryTimeout
	}

	// Database defaults
	applyDBDefaults(&c.Database.Postgres)

	// NATS defaults
	if c.NATS.URL == "" {
		c.NATS.URL = DefaultNATSURL
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = DefaultSubjectPrefix
	}
	if c.NATS.BufferSize == 0 {
		c.NATS.BufferSize = DefaultEventBuffer
	}
	if c.NATS.ReconnectWait == 0 {
		c.NATS.ReconnectWait = DefaultReconnectWait
	}
	if c.NATS.MaxReconnects == 0 {
		c.NATS.MaxReconnects = DefaultMaxReconnects
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
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
