// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Portal session backends accepted by PORTAL_SESSION_BACKEND.
const (
	PortalBackendPostgres = "postgres"
	PortalBackendRedis    = "redis"
	PortalBackendMemory   = "memory"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP/WebSocket server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTPublicKey is the PEM-encoded public key or path to file used to verify staff session tokens.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTPrivateKey is only needed by cmd/seed to mint dev tokens.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	JWTIssuer     string `mapstructure:"JWT_ISSUER"`
	JWTAudience   string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the staff token lifetime used when minting (e.g. "12h").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`

	// StaffSessionCookie carries the staff access token for browser clients.
	StaffSessionCookie string `mapstructure:"STAFF_SESSION_COOKIE"`
	// PortalSessionCookie carries the opaque portal session token issued after OTP verification.
	PortalSessionCookie string `mapstructure:"PORTAL_SESSION_COOKIE"`
	// PortalSessionBackend is one of postgres, redis, memory.
	PortalSessionBackend string `mapstructure:"PORTAL_SESSION_BACKEND"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses. Empty disables Kafka.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AnalyticsKafkaTopic receives fire-and-forget analytics events.
	AnalyticsKafkaTopic string `mapstructure:"ANALYTICS_KAFKA_TOPIC"`
	// DeliveryEventsTopic carries delivery events published by the order/delivery services.
	DeliveryEventsTopic string `mapstructure:"DELIVERY_EVENTS_TOPIC"`
	// KafkaGroupID is the consumer group for the delivery-event bridge and the analytics worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// Worker-only: Loki URL for the analytics worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`

	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// Influx* configure the optional location time-series mirror. Empty InfluxURL disables it.
	InfluxURL    string `mapstructure:"INFLUX_URL"`
	InfluxToken  string `mapstructure:"INFLUX_TOKEN"`
	InfluxOrg    string `mapstructure:"INFLUX_ORG"`
	InfluxBucket string `mapstructure:"INFLUX_BUCKET"`

	// CatchUpHistoryLimit bounds the history burst sent to a driver on connect.
	CatchUpHistoryLimit int `mapstructure:"CATCHUP_HISTORY_LIMIT"`
	// CatchUpSinceMinutes bounds the age of the history burst.
	CatchUpSinceMinutes int `mapstructure:"CATCHUP_SINCE_MINUTES"`
	// SendBufferSize is the per-connection outbound queue length.
	SendBufferSize int `mapstructure:"SEND_BUFFER_SIZE"`
	// WSWriteTimeout is the per-message write deadline (e.g. "10s").
	WSWriteTimeout string `mapstructure:"WS_WRITE_TIMEOUT"`
	// AssumedSpeedKph is used for ETA when the driver reports no usable speed.
	AssumedSpeedKph float64 `mapstructure:"ASSUMED_SPEED_KPH"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_ISSUER", "laundry-auth")
	v.SetDefault("JWT_AUDIENCE", "laundry-api")
	v.SetDefault("JWT_ACCESS_TTL", "12h")
	v.SetDefault("STAFF_SESSION_COOKIE", "laundry_session")
	v.SetDefault("PORTAL_SESSION_COOKIE", "portal_session")
	v.SetDefault("PORTAL_SESSION_BACKEND", PortalBackendPostgres)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("ANALYTICS_KAFKA_TOPIC", "laundry-analytics")
	v.SetDefault("DELIVERY_EVENTS_TOPIC", "delivery-events")
	v.SetDefault("KAFKA_GROUP_ID", "laundry-realtime")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("INFLUX_URL", "")
	v.SetDefault("INFLUX_TOKEN", "")
	v.SetDefault("INFLUX_ORG", "")
	v.SetDefault("INFLUX_BUCKET", "driver-locations")
	v.SetDefault("CATCHUP_HISTORY_LIMIT", 50)
	v.SetDefault("CATCHUP_SINCE_MINUTES", 120)
	v.SetDefault("SEND_BUFFER_SIZE", 64)
	v.SetDefault("WS_WRITE_TIMEOUT", "10s")
	v.SetDefault("ASSUMED_SPEED_KPH", 25)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	cfg.PortalSessionBackend = strings.ToLower(strings.TrimSpace(cfg.PortalSessionBackend))
	switch cfg.PortalSessionBackend {
	case PortalBackendPostgres, PortalBackendMemory:
	case PortalBackendRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("config: REDIS_ADDR must be set when PORTAL_SESSION_BACKEND=redis")
		}
	default:
		return nil, errors.New("config: PORTAL_SESSION_BACKEND must be one of postgres, redis, memory")
	}

	if cfg.SendBufferSize < 1 {
		return nil, errors.New("config: SEND_BUFFER_SIZE must be at least 1")
	}
	if cfg.CatchUpHistoryLimit < 0 {
		cfg.CatchUpHistoryLimit = 0
	}
	if cfg.AssumedSpeedKph <= 0 {
		cfg.AssumedSpeedKph = 25
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 12h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 12 * time.Hour
	}
	return d
}

// WriteTimeout parses WSWriteTimeout. Returns 10s if unset or invalid.
func (c *Config) WriteTimeout() time.Duration {
	d, err := time.ParseDuration(c.WSWriteTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list means Kafka is disabled.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
