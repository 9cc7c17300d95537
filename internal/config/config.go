package config

import "time"

// HubConfig is the root configuration for a realtime hub instance.
type HubConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Server   ServerConfig   `yaml:"server"`
	Stream   StreamConfig   `yaml:"stream"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// InstanceConfig identifies this hub.
type InstanceConfig struct {
	ID string `yaml:"id"`
	AZ string `yaml:"az"`
}

// ServerConfig holds the WebSocket listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	WSPath          string        `yaml:"ws_path"`
	ReadBufferSize  int           `yaml:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size"`
	MaxPayloadBytes int64         `yaml:"max_payload_bytes"`
	SendQueueSize   int           `yaml:"send_queue_size"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// StreamConfig holds fan-out tuning: liveness probing, per-client limits,
// rate limiting, and update batching.
type StreamConfig struct {
	HeartbeatInterval         time.Duration `yaml:"heartbeat_interval"`
	ClientTimeout             time.Duration `yaml:"client_timeout"`
	MaxSubscriptionsPerClient int           `yaml:"max_subscriptions_per_client"`
	RateLimitWindow           time.Duration `yaml:"rate_limit_window"`
	RateLimitMaxRequests      int           `yaml:"rate_limit_max_requests"`
	MaxBatchSize              int           `yaml:"max_batch_size"`
	BatchInterval             time.Duration `yaml:"batch_interval"`
	StatsInterval             time.Duration `yaml:"stats_interval"`
	QueryTimeout              time.Duration `yaml:"query_timeout"`
}

// DatabaseConfig holds the Postgres connection for market data queries.
// The hub only reads here; the indexer pipeline owns the writes.
type DatabaseConfig struct {
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

// NATSConfig holds the domain-event source settings.
type NATSConfig struct {
	URL           string        `yaml:"url"`
	SubjectPrefix string        `yaml:"subject_prefix"`
	BufferSize    int           `yaml:"buffer_size"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
	MaxReconnects int           `yaml:"max_reconnects"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
