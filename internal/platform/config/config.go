package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. FromEnv keeps main lean.
type Server struct {
	Addr          string
	JWTSigningKey string

	// DatabaseURL selects the postgres stores; empty means in-memory stores
	// (development and unit-test wiring).
	DatabaseURL string

	Redis RedisConfig
	Kafka KafkaConfig

	// OTLPEndpoint enables trace export when non-empty.
	OTLPEndpoint string

	// InvocationsPerMinute is the per-tenant AI invocation throttle window.
	InvocationsPerMinute int

	// ModelURL points the gateway at the upstream completion endpoint;
	// empty selects the development echo backend.
	ModelURL string

	// ConsentTTL bounds the validity of granted consents; zero means no
	// expiry beyond explicit revocation.
	ConsentTTL time.Duration
}

// RedisConfig configures the optional Redis-backed gateway throttle.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit outbox publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("RGPD_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	topic := os.Getenv("AUDIT_KAFKA_TOPIC")
	if topic == "" {
		topic = "rgpd.audit.compliance"
	}

	var brokers []string
	if v := os.Getenv("AUDIT_KAFKA_BROKERS"); v != "" {
		brokers = splitCSV(v)
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   topic,
		},
		OTLPEndpoint:         os.Getenv("OTLP_ENDPOINT"),
		InvocationsPerMinute: envInt("AI_INVOCATIONS_PER_MINUTE", 60),
		ModelURL:             os.Getenv("AI_MODEL_URL"),
		ConsentTTL:           envDuration("CONSENT_TTL", 0),
	}
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
