// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends selectable with OTP_STORE and SESSION_STORE.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreFile     = "file"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// DatabaseURL is the Postgres DSN. Required when either store is postgres; enables the audit log.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL is a redis:// URL. Required when either store is redis.
	RedisURL string `mapstructure:"REDIS_URL"`
	// OTPStore selects the code store: memory or redis.
	OTPStore string `mapstructure:"OTP_STORE"`
	// SessionStore selects the session slot backend: memory, redis, postgres or file.
	SessionStore string `mapstructure:"SESSION_STORE"`
	// SessionDir is the directory used by the file session store. Empty means the user config dir.
	SessionDir string `mapstructure:"SESSION_DIR"`

	// OTPValidity is how long a code is accepted (e.g. "60s").
	OTPValidity time.Duration `mapstructure:"OTP_VALIDITY"`
	// OTPMaxAttempts is the number of wrong guesses tolerated per code.
	OTPMaxAttempts int `mapstructure:"OTP_MAX_ATTEMPTS"`
	// OTPRecordRetention is how long Redis keeps a code record after it is written.
	OTPRecordRetention time.Duration `mapstructure:"OTP_RECORD_RETENTION"`
	// OTPReturnToClient returns the generated code in the RequestCode response, standing in for email delivery.
	// Must not be true when Env is production.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file. Empty generates an ephemeral key.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim of session tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim of session tokens.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// SessionTokenTTL is the session token lifetime (e.g. "12h").
	SessionTokenTTL time.Duration `mapstructure:"SESSION_TOKEN_TTL"`

	// EmailPolicyFile is an optional Rego module replacing the default allow-all email policy.
	EmailPolicyFile string `mapstructure:"EMAIL_POLICY_FILE"`

	// OTel exporter settings. An empty endpoint disables export.
	OTelEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelInsecure    bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses. When set, analytics events are published.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AnalyticsKafkaTopic is the Kafka topic for analytics events.
	AnalyticsKafkaTopic string `mapstructure:"ANALYTICS_KAFKA_TOPIC"`
	// Worker-only: KafkaGroupID is the consumer group ID for the analytics worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// Worker-only: Loki URL for the analytics worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("OTP_STORE", StoreMemory)
	v.SetDefault("SESSION_STORE", StoreMemory)
	v.SetDefault("SESSION_DIR", "")
	v.SetDefault("OTP_VALIDITY", "60s")
	v.SetDefault("OTP_MAX_ATTEMPTS", 3)
	v.SetDefault("OTP_RECORD_RETENTION", "24h")
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "otpauth")
	v.SetDefault("JWT_AUDIENCE", "otpauth-api")
	v.SetDefault("SESSION_TOKEN_TTL", "12h")
	v.SetDefault("EMAIL_POLICY_FILE", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "otp-session-auth")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("ANALYTICS_KAFKA_TOPIC", "otpauth-analytics")
	v.SetDefault("KAFKA_GROUP_ID", "otpauth-analytics-worker")
	v.SetDefault("LOKI_URL", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.GRPCAddr == "" {
		return errors.New("config: GRPC_ADDR must be set")
	}
	if c.OTPReturnToClient && c.Env == "production" {
		return errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}
	if c.OTPValidity <= 0 {
		return errors.New("config: OTP_VALIDITY must be positive")
	}
	if c.OTPMaxAttempts < 1 {
		return errors.New("config: OTP_MAX_ATTEMPTS must be at least 1")
	}
	if c.SessionTokenTTL <= 0 {
		return errors.New("config: SESSION_TOKEN_TTL must be positive")
	}
	if (c.JWTPrivateKey == "") != (c.JWTPublicKey == "") {
		return errors.New("config: JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set together")
	}

	c.OTPStore = strings.ToLower(strings.TrimSpace(c.OTPStore))
	switch c.OTPStore {
	case StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return errors.New("config: REDIS_URL must be set when OTP_STORE=redis")
		}
	default:
		return fmt.Errorf("config: unknown OTP_STORE %q", c.OTPStore)
	}

	c.SessionStore = strings.ToLower(strings.TrimSpace(c.SessionStore))
	switch c.SessionStore {
	case StoreMemory, StoreFile:
	case StoreRedis:
		if c.RedisURL == "" {
			return errors.New("config: REDIS_URL must be set when SESSION_STORE=redis")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL must be set when SESSION_STORE=postgres")
		}
	default:
		return fmt.Errorf("config: unknown SESSION_STORE %q", c.SessionStore)
	}
	return nil
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if analytics publishing is enabled (non-empty list) and to create the producer.
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
